package pages

// StatusView is the blocking state shown on every page. Known is false when
// the blocky API could not be reached.
type StatusView struct {
	Known           bool
	Enabled         bool
	AutoEnableInSec uint
}

type BlockData struct {
	Domain  string
	Status  StatusView
	Version string
}

type AdminData struct {
	Status  StatusView
	Version string
}
