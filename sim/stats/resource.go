package stats

// Resource tracks whether something is busy or idle over virtual time.
// Utilisation is the fraction of time busy since the last reset.
type Resource struct {
	busy   bool
	signal *SystemMeasure
}

// NewResource creates an idle Resource.
func NewResource(clock Clock) *Resource {
	return &Resource{signal: NewSystemMeasure(clock)}
}

// Claim marks the resource busy from now on.
func (r *Resource) Claim() {
	r.busy = true
	r.signal.Update(1)
}

// Release marks the resource idle from now on.
func (r *Resource) Release() {
	r.busy = false
	r.signal.Update(0)
}

// Busy reports whether the resource is currently claimed.
func (r *Resource) Busy() bool {
	return r.busy
}

// Utilisation returns the fraction of virtual time the resource has been
// busy since the last reset. It panics if no time has elapsed.
func (r *Resource) Utilisation() float64 {
	return r.signal.Mean()
}

// ResetTime returns the start of the current observation window.
func (r *Resource) ResetTime() float64 {
	return r.signal.ResetTime()
}

// Reset starts a new observation window, keeping the busy state.
func (r *Resource) Reset() {
	r.signal.Reset()
}
