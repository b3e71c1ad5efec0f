package region

// ComputeOverrides flags every assignment whose region is partially
// superseded by a narrower assignment naming a different installer.
//
// The check is tier-based, not geometric: a narrower assignment anywhere
// in the set counts as inside the broader one, so a city named "houston"
// overrides every state assignment with a different installer.
//
// Every input assignment has an entry in the result.
func ComputeOverrides(assignments []Assignment) map[Key]bool {
	// Distinct installer ids per tier.
	installers := make(map[Type]map[string]struct{}, len(Tiers))
	for _, a := range assignments {
		set, ok := installers[a.Type]
		if !ok {
			set = make(map[string]struct{})
			installers[a.Type] = set
		}
		set[a.InstallerID] = struct{}{}
	}

	out := make(map[Key]bool, len(assignments))
	for _, a := range assignments {
		out[a.Key()] = hasOtherInstaller(installers, a.Type.Narrower(), a.InstallerID)
	}
	return out
}

func hasOtherInstaller(installers map[Type]map[string]struct{}, tiers []Type, installerID string) bool {
	for _, t := range tiers {
		for id := range installers[t] {
			if id != installerID {
				return true
			}
		}
	}
	return false
}

// Overriders returns the narrower assignments in the set whose installer
// differs from a's, ordered by tier then code. It is empty exactly when
// ComputeOverrides reports false for a.
func Overriders(assignments []Assignment, a Assignment) []Assignment {
	narrower := make(map[Type]bool)
	for _, t := range a.Type.Narrower() {
		narrower[t] = true
	}
	var out []Assignment
	for _, b := range assignments {
		if narrower[b.Type] && b.InstallerID != a.InstallerID {
			out = append(out, b)
		}
	}
	Sort(out)
	return out
}
