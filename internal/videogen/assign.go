package videogen

import "math/rand"

// AssignImages maps reference images onto scene indices per the
// assignment mode. The returned slice has one entry per scene; entries
// are "" when no images were supplied. The rand source is injectable so
// random assignment stays reproducible in tests.
func AssignImages(mode AssignMode, images []string, sceneCount int, rng *rand.Rand) []string {
	assigned := make([]string, sceneCount)
	if len(images) == 0 {
		return assigned
	}

	for i := range assigned {
		switch mode {
		case AssignRandom:
			assigned[i] = images[rng.Intn(len(images))]
		case AssignFirstOnly:
			assigned[i] = images[0]
		default: // cycle
			assigned[i] = images[i%len(images)]
		}
	}
	return assigned
}
