package expr

import "time"

// Map is the slice of a world map the VM reads. world.Map satisfies it.
type Map interface {
	ID() uint32
	DifficultyID() uint32
}

// Environment supplies world-state values and calendar data to the VM.
type Environment interface {
	// LookupWorldState returns the value of world state id on m, or 0 when
	// the id is unknown.
	LookupWorldState(id uint32, m Map) int32

	// Now returns the current game time.
	Now() time.Time

	// RegionID returns the realm region id.
	RegionID() int32

	// HolidayActive reports whether holiday id is running.
	HolidayActive(id uint32) bool

	// HolidayStart returns the unix start time of the current or next
	// occurrence of holiday id, 0 when unknown.
	HolidayStart(id uint32) int32

	// HolidayLeft returns the minutes remaining in holiday id, 0 when it is
	// not running.
	HolidayLeft(id uint32) int32

	// RandomInt returns a uniformly distributed value in [min, max].
	RandomInt(min, max int32) int32
}

// Programs resolves expression ids for the nested-expression function.
type Programs interface {
	Program(id uint32) (Program, bool)
}

// ProgramSet is a Programs backed by a map.
type ProgramSet map[uint32]Program

// Program implements Programs.
func (s ProgramSet) Program(id uint32) (Program, bool) {
	p, ok := s[id]
	return p, ok
}
