package unit

// DamageResult describes one pass through the damage pipeline.
type DamageResult struct {
	UnitID string `json:"unit_id"`
	// Raw is the incoming damage before mitigation.
	Raw float64 `json:"raw"`
	// Evaded is true when the evasion roll succeeded; nothing else was applied.
	Evaded bool `json:"evaded"`
	// Mitigated is the damage left after defense, at least 1 unless evaded.
	Mitigated float64 `json:"mitigated"`
	// ShieldAbsorbed is the portion taken by the shield.
	ShieldAbsorbed float64 `json:"shield_absorbed"`
	// HealthDelta is the health actually lost.
	HealthDelta float64 `json:"health_delta"`
	// Killed is true when this hit moved the unit from alive to dead.
	Killed bool `json:"killed"`
}

// Listener observes unit mutations. Callbacks run synchronously, in registration
// order, at the point of mutation and before the mutating call returns.
type Listener interface {
	OnDamage(u *Unit, r DamageResult)
	OnHeal(u *Unit, amount float64)
	OnDeath(u *Unit)
}

// ListenerFuncs adapts optional functions to Listener; nil fields are skipped.
type ListenerFuncs struct {
	Damage func(u *Unit, r DamageResult)
	Heal   func(u *Unit, amount float64)
	Death  func(u *Unit)
}

// OnDamage calls Damage if set.
func (f ListenerFuncs) OnDamage(u *Unit, r DamageResult) {
	if f.Damage != nil {
		f.Damage(u, r)
	}
}

// OnHeal calls Heal if set.
func (f ListenerFuncs) OnHeal(u *Unit, amount float64) {
	if f.Heal != nil {
		f.Heal(u, amount)
	}
}

// OnDeath calls Death if set.
func (f ListenerFuncs) OnDeath(u *Unit) {
	if f.Death != nil {
		f.Death(u)
	}
}

type listenerEntry struct {
	id int
	l  Listener
}

// Subscribe registers l and returns a function that removes it.
// Removing during dispatch takes effect from the next event.
//
// Precondition: l must be non-nil.
func (u *Unit) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		panic("unit: Subscribe precondition violated: listener must be non-nil")
	}
	u.nextSub++
	id := u.nextSub
	u.listeners = append(u.listeners, listenerEntry{id: id, l: l})
	return func() {
		for i, e := range u.listeners {
			if e.id == id {
				u.listeners = append(u.listeners[:i:i], u.listeners[i+1:]...)
				return
			}
		}
	}
}

// snapshotListeners copies the current listener list so dispatch is stable
// against (un)subscription from inside a callback.
func (u *Unit) snapshotListeners() []listenerEntry {
	if len(u.listeners) == 0 {
		return nil
	}
	out := make([]listenerEntry, len(u.listeners))
	copy(out, u.listeners)
	return out
}

func (u *Unit) emitDamage(r DamageResult) {
	for _, e := range u.snapshotListeners() {
		e.l.OnDamage(u, r)
	}
}

func (u *Unit) emitHeal(amount float64) {
	for _, e := range u.snapshotListeners() {
		e.l.OnHeal(u, amount)
	}
}

func (u *Unit) emitDeath() {
	for _, e := range u.snapshotListeners() {
		e.l.OnDeath(u)
	}
}
