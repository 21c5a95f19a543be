// Package skill implements the Skill manager (spec §4.6, C6): intent
// binding storage, the parseInput dispatch algorithm, and the built-in
// fallback phrasebook (spec §6.3). Concrete skills (Hello, KnockKnock,
// TellDateTime, WhoISee) are external collaborators per spec §1 and are
// not implemented here — only the Skill contract they plug into.
package skill

import (
	"fmt"
	"strings"

	"karen/internal/intent"
)

// Result is what an intent callback (or the fallback) reports back to
// parseInput.
type Result struct {
	Error   bool
	Message string
}

func ok(msg string) Result  { return Result{Error: false, Message: msg} }
func fail(msg string) Result { return Result{Error: true, Message: msg} }

// BrainCallback is the narrow surface skills use to talk back to the
// Brain, breaking the brain<->skill-manager<->skill reference cycle
// (spec §9 "Back-references"): the Brain owns the SkillManager which owns
// Skills; Skills only ever see this interface.
type BrainCallback interface {
	Say(text string) error
	Ask(text string, cb func(string), timeoutSeconds int) error
}

// Callback handles one matched intent and reports success/failure.
type Callback func(intent.Result) Result

// Registrar is handed to a Skill's Initialize so it can bind intent files
// to callbacks (spec §4.6 "register_intent_file").
type Registrar interface {
	RegisterIntentFile(fileName string, cb Callback) error
}

// Skill is the plugin contract every domain skill implements.
type Skill interface {
	Name() string
	Initialize(brain BrainCallback, reg Registrar) error
	Stop() error
}

type binding struct {
	intentName string
	callback   Callback
	skillName  string
}

// Manager owns the intent parser, the loaded skills, and the intent
// bindings they registered (spec §4.6 lifecycle).
type Manager struct {
	parser   intent.Parser
	brain    BrainCallback
	skills   []Skill
	bindings []binding
}

// New constructs a Manager bound to a parser and the Brain callback
// surface every loaded skill will receive.
func New(parser intent.Parser, brain BrainCallback) *Manager {
	return &Manager{parser: parser, brain: brain}
}

// LoadSkills instantiates and initializes every given skill, letting each
// register its intent bindings via RegisterIntentFile.
func (m *Manager) LoadSkills(skills ...Skill) error {
	for _, s := range skills {
		m.skills = append(m.skills, s)
		if err := s.Initialize(m.brain, m); err != nil {
			m.skills = m.skills[:len(m.skills)-1]
			return fmt.Errorf("initialize skill %s: %w", s.Name(), err)
		}
	}
	return m.parser.Train()
}

// RegisterIntentFile implements Registrar. The skill name recorded is
// whichever skill is currently being initialized; since LoadSkills calls
// Initialize synchronously per skill, Manager tracks it via a small
// load-time cursor instead of requiring the skill to pass itself in.
func (m *Manager) RegisterIntentFile(fileName string, cb Callback) error {
	name := "unknown"
	if len(m.skills) > 0 {
		name = m.skills[len(m.skills)-1].Name()
	}
	if err := m.parser.LoadFile(fileName, fileName); err != nil {
		return fmt.Errorf("load intent file %s: %w", fileName, err)
	}
	m.bindings = append(m.bindings, binding{intentName: fileName, callback: cb, skillName: name})
	return nil
}

// ParseInput implements the spec §4.6 parseInput algorithm: classify,
// reject low-confidence or unbound intents to the fallback, and treat a
// callback's error result as fallback-eligible too. Any other outcome,
// including a callback that panics, counts as success.
func (m *Manager) ParseInput(text string) Result {
	result, err := m.parser.CalcIntent(text)
	if err != nil {
		return fail("Error occurred in processing.")
	}

	if result.Confidence < 0.6 {
		return m.fallback(text)
	}

	for _, b := range m.bindings {
		if b.intentName != result.Name {
			continue
		}
		cbResult := func() (r Result) {
			defer func() {
				if recover() != nil {
					r = ok("Skill completed successfully.")
				}
			}()
			return b.callback(result)
		}()
		if cbResult.Error {
			return m.fallback(text)
		}
		return ok("Skill completed successfully.")
	}

	return m.fallback(text)
}

// Stop fans Stop() out to every loaded skill (spec §4.6 "stop() fan-out").
func (m *Manager) Stop() error {
	for _, s := range m.skills {
		_ = s.Stop()
	}
	return nil
}

// fallback implements the hard-coded phrasebook of spec §6.3. Matches are
// tried in order and the first hit wins; all matching is case-sensitive
// substring search exactly as specified.
func (m *Manager) fallback(text string) Result {
	switch {
	case strings.Contains(text, "thanks") || strings.Contains(text, "thank you"):
		return m.say("You're welcome.")
	case strings.Contains(text, "who are you") || strings.Contains(text, "who are u"):
		return m.say("I am a synthetic human. You may call me Karen.")
	case strings.Contains(text, "how are you"):
		return m.say("I am online and functioning properly.")
	case strings.Contains(text, "you real") && len(text) <= 15:
		return m.say("What is real? If you define real as electrical impulses flowing through your brain then yes, I am real.")
	case strings.Contains(text, "you human") && len(text) <= 17:
		return m.say("More or less. My maker says that I am a synthetic human.")
	case strings.Contains(text, "is your maker") && len(text) <= 20:
		return m.say("I was designed by lnx user one in 2020 during the Covid 19 lockdown.")
	default:
		return fail("Intent not understood.")
	}
}

func (m *Manager) say(text string) Result {
	if m.brain == nil {
		return fail("Intent not understood.")
	}
	if err := m.brain.Say(text); err != nil {
		return fail("Intent not understood.")
	}
	return ok("Skill completed successfully.")
}
