package types

// AppState is the lifecycle state of the application shell within one process
//
//	NOT_STARTED -> CONFIGURING -> STORE_MISSING -> SEEDING -> READY
//	                           -> STORE_PRESENT -> READY
//	any -> FAILED
type AppState int32

const (
	AppStateNotStarted AppState = iota
	AppStateConfiguring
	AppStateStoreMissing
	AppStateSeeding
	AppStateStorePresent
	AppStateReady
	AppStateFailed
)

// String returns the string representation of the state
func (s AppState) String() string {
	switch s {
	case AppStateNotStarted:
		return "NOT_STARTED"
	case AppStateConfiguring:
		return "CONFIGURING"
	case AppStateStoreMissing:
		return "STORE_MISSING"
	case AppStateSeeding:
		return "SEEDING"
	case AppStateStorePresent:
		return "STORE_PRESENT"
	case AppStateReady:
		return "READY"
	case AppStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition happens from this state
func (s AppState) IsTerminal() bool {
	return s == AppStateReady || s == AppStateFailed
}
