// Package device defines the capability contract every peripheral and
// plugin implements (spec §4.2, C2), and the descriptor a Container keeps
// per device (spec §3 "Device descriptor").
package device

// Device is the minimal lifecycle every peripheral and skill-adjacent
// plugin must support. Start on an already-running device and Stop on an
// already-stopped device are both no-ops that return nil — the Container
// never needs to check IsRunning before calling either.
type Device interface {
	Start(useThreads bool) error
	Stop() error
	IsRunning() bool
}

// Sayer is implemented by speaker-like devices that accept SAY commands.
type Sayer interface {
	Say(text string) error
}

// Upgradable is implemented by devices that accept an UPGRADE command.
type Upgradable interface {
	Upgrade(payload map[string]any) error
}

// Descriptor is how a Container remembers one device instance: its
// locally-unique ID, declared type, the action names it accepts, and
// advisory display metadata.
type Descriptor struct {
	ID           string
	Type         string
	Device       Device
	Accepts      map[string]bool
	FriendlyName string
	IsPanel      bool
}

// AcceptsAction reports whether this descriptor's device responds to action.
func (d *Descriptor) AcceptsAction(action string) bool {
	return d.Accepts[action]
}

// NewDescriptor builds a Descriptor, defaulting Accepts to the actions
// every Device supports plus whatever extra capabilities are detected via
// the optional interfaces.
func NewDescriptor(id, deviceType string, dev Device, friendlyName string, isPanel bool, extraAccepts ...string) *Descriptor {
	accepts := map[string]bool{"start": true, "stop": true}
	if _, ok := dev.(Sayer); ok {
		accepts["say"] = true
	}
	if _, ok := dev.(Upgradable); ok {
		accepts["upgrade"] = true
	}
	for _, a := range extraAccepts {
		accepts[a] = true
	}

	return &Descriptor{
		ID:           id,
		Type:         deviceType,
		Device:       dev,
		Accepts:      accepts,
		FriendlyName: friendlyName,
		IsPanel:      isPanel,
	}
}
