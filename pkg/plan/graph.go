package plan

import "fmt"

// Validate checks the structural invariants of the plan graph. A nil return
// guarantees Waves will succeed.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return &MalformedPlanError{PlanID: p.ID, Reason: "plan has no steps"}
	}

	seen := make(map[string]bool, len(p.Steps))
	for i := range p.Steps {
		id := p.Steps[i].ID
		if id == "" {
			return &MalformedPlanError{PlanID: p.ID, Reason: fmt.Sprintf("step %d has empty id", i)}
		}
		if seen[id] {
			return &MalformedPlanError{PlanID: p.ID, Reason: fmt.Sprintf("duplicate step id %q", id)}
		}
		seen[id] = true
	}

	for i := range p.Steps {
		for _, dep := range p.Steps[i].DependsOn {
			if dep == p.Steps[i].ID {
				return &MalformedPlanError{PlanID: p.ID, Reason: fmt.Sprintf("step %q depends on itself", dep)}
			}
			if !seen[dep] {
				return &MalformedPlanError{
					PlanID: p.ID,
					Reason: fmt.Sprintf("step %q depends on unknown step %q", p.Steps[i].ID, dep),
				}
			}
		}
	}

	if _, err := p.Waves(); err != nil {
		return err
	}
	return nil
}

// Waves groups step ids into topological layers: every step in wave N depends
// only on steps in waves < N. Steps inside one wave carry no mutual ordering
// and may run concurrently. Order within a wave follows Steps order, so the
// layering is deterministic for a given plan.
func (p *Plan) Waves() ([][]string, error) {
	placed := make(map[string]bool, len(p.Steps))
	var waves [][]string

	remaining := len(p.Steps)
	for remaining > 0 {
		var wave []string
		for i := range p.Steps {
			s := &p.Steps[i]
			if placed[s.ID] {
				continue
			}
			ready := true
			for _, dep := range s.DependsOn {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, s.ID)
			}
		}
		if len(wave) == 0 {
			return nil, &MalformedPlanError{
				PlanID: p.ID,
				Reason: fmt.Sprintf("dependency cycle among %s", cycleMembers(p, placed)),
			}
		}
		for _, id := range wave {
			placed[id] = true
		}
		remaining -= len(wave)
		waves = append(waves, wave)
	}
	return waves, nil
}

// cycleMembers names the steps that could not be placed, for the error text.
func cycleMembers(p *Plan, placed map[string]bool) string {
	var stuck []string
	for i := range p.Steps {
		if !placed[p.Steps[i].ID] {
			stuck = append(stuck, p.Steps[i].ID)
		}
	}
	return fmt.Sprintf("%v", stuck)
}
