package battle

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guildmaster/internal/game/dice"
	"github.com/cory-johannsen/guildmaster/internal/game/unit"
)

// HealThreshold is the health fraction below which a healer tends an ally instead of attacking.
const HealThreshold = 0.5

// ActionType is what a combatant did on its turn.
type ActionType int

const (
	ActionAttack ActionType = iota
	ActionHeal
	ActionMiss
)

// String returns the action label used in logs and API payloads.
func (a ActionType) String() string {
	switch a {
	case ActionAttack:
		return "attack"
	case ActionHeal:
		return "heal"
	case ActionMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionType) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActionType) UnmarshalText(b []byte) error {
	for _, t := range []ActionType{ActionAttack, ActionHeal, ActionMiss} {
		if t.String() == string(b) {
			*a = t
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", b)
}

// RoundEvent records one resolved turn. Amount is the outgoing damage after
// ability modifiers, or the health actually restored.
type RoundEvent struct {
	Round      int                `json:"round"`
	Action     ActionType         `json:"action"`
	ActorID    string             `json:"actor_id"`
	ActorName  string             `json:"actor_name"`
	TargetID   string             `json:"target_id"`
	TargetName string             `json:"target_name"`
	Amount     float64            `json:"amount"`
	Damage     *unit.DamageResult `json:"damage,omitempty"`
	Narrative  string             `json:"narrative"`
}

// ResolveRound plays one round: every living combatant acts once in turn order.
// Healers (Priest, Sage) heal the most wounded ally below HealThreshold; everyone
// else, and healers with no wounded ally, attack the living enemy with the lowest
// health fraction. Resolution stops as soon as one side is wiped.
//
// A landed attack is scaled by the actor's ability-modified power (AttackPower, or
// MagicAttackPower for casters, which takes one extra roll) and mitigated by the
// target's physical or magical defense. Heals are scaled by HealingPower.
//
// Precondition: b, src and logger must be non-nil.
// Postcondition: b.Round is incremented unless b was already over; events are in turn order.
func ResolveRound(b *Battle, src dice.Source, logger *zap.Logger) []RoundEvent {
	if b.checkOver() {
		return nil
	}
	b.Round++

	var events []RoundEvent
	for _, actor := range b.Combatants {
		if b.Over {
			break
		}
		if !actor.Unit.IsAlive() {
			continue
		}

		var ev RoundEvent
		if target := healTarget(b, actor); target != nil {
			ev = heal(actor, target, src)
		} else if target := attackTarget(b, actor); target != nil {
			ev = attack(actor, target, src)
		} else {
			continue
		}
		ev.Round = b.Round
		events = append(events, ev)

		logger.Debug("battle turn",
			zap.String("battle_id", b.ID),
			zap.Int("round", b.Round),
			zap.Stringer("action", ev.Action),
			zap.String("actor_id", ev.ActorID),
			zap.String("target_id", ev.TargetID),
			zap.Float64("amount", ev.Amount),
		)
		b.checkOver()
	}
	return events
}

func isHealer(u *unit.Unit) bool {
	return u.Job() == unit.Priest || u.Job() == unit.Sage
}

// healTarget returns the living ally with the lowest health fraction below
// HealThreshold, or nil when the actor is not a healer or nobody needs it.
func healTarget(b *Battle, actor *Combatant) *Combatant {
	if !isHealer(actor.Unit) {
		return nil
	}
	var best *Combatant
	for _, c := range b.Living(actor.Side) {
		f := c.Unit.HealthFraction()
		if f >= HealThreshold {
			continue
		}
		if best == nil || f < best.Unit.HealthFraction() {
			best = c
		}
	}
	return best
}

// attackTarget returns the living enemy with the lowest health fraction.
func attackTarget(b *Battle, actor *Combatant) *Combatant {
	var best *Combatant
	for _, c := range b.Living(actor.Side.Opponent()) {
		if best == nil || c.Unit.HealthFraction() < best.Unit.HealthFraction() {
			best = c
		}
	}
	return best
}

func heal(actor, target *Combatant, src dice.Source) RoundEvent {
	a, t := actor.Unit, target.Unit
	healed, _ := t.ApplyHeal(a.GetHealPower(src) * healMultiplier(a))
	return RoundEvent{
		Action:     ActionHeal,
		ActorID:    a.ID(),
		ActorName:  a.Name(),
		TargetID:   t.ID(),
		TargetName: t.Name(),
		Amount:     healed,
		Narrative:  fmt.Sprintf("%s heals %s for %.0f.", a.Name(), t.Name(), healed),
	}
}

func attack(actor, target *Combatant, src dice.Source) RoundEvent {
	a, t := actor.Unit, target.Unit
	ev := RoundEvent{
		ActorID:    a.ID(),
		ActorName:  a.Name(),
		TargetID:   t.ID(),
		TargetName: t.Name(),
	}

	dmg := a.GetAttackDamage(src)
	if dmg == 0 {
		ev.Action = ActionMiss
		ev.Narrative = fmt.Sprintf("%s attacks %s and misses.", a.Name(), t.Name())
		return ev
	}

	dmg *= powerMultiplier(a, src)
	res, _ := t.ApplyDamage(defended(dmg, t, a.IsCaster()), src)
	ev.Action = ActionAttack
	ev.Amount = dmg
	ev.Damage = &res
	switch {
	case res.Evaded:
		ev.Narrative = fmt.Sprintf("%s attacks %s, who evades.", a.Name(), t.Name())
	case res.Killed:
		ev.Narrative = fmt.Sprintf("%s strikes down %s.", a.Name(), t.Name())
	default:
		ev.Narrative = fmt.Sprintf("%s hits %s for %.0f.", a.Name(), t.Name(), res.Mitigated)
	}
	return ev
}

// powerMultiplier is the ratio of the actor's ability-modified power to its bare stat.
func powerMultiplier(a *unit.Unit, src dice.Source) float64 {
	s := a.Stats()
	if a.IsCaster() {
		return ratio(a.MagicAttackPower(src), s.MagicPower)
	}
	return ratio(a.AttackPower(), s.Attack)
}

// healMultiplier is the ratio of HealingPower to bare healing (magic power * 0.8).
func healMultiplier(a *unit.Unit) float64 {
	return ratio(a.HealingPower(), a.Stats().MagicPower*0.8)
}

func ratio(power, base float64) float64 {
	if base <= 0 {
		return 1
	}
	return power / base
}

// defended shifts raw so that the base-defense mitigation in ApplyDamage lands on
// the target's magical or physical defense instead.
func defended(raw float64, t *unit.Unit, magical bool) float64 {
	typed := t.PhysicalDefense()
	if magical {
		typed = t.MagicalDefense()
	}
	return math.Max(0, raw+(t.Stats().Defense-typed)*unit.DefenseMitigation)
}
