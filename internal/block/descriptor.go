package block

import "strconv"

// Input descriptor schemes, selected per slot by Slot.InputDescriptor.
const (
	DescriptorPlain     = iota // x1..xn
	DescriptorRecursive        // x1..xk, n, z
	DescriptorMinimized        // x1..xk, y
	DescriptorComposed         // y1..ym
)

// InputNames returns display names for count inputs under the given scheme.
// Unknown schemes fall back to DescriptorPlain.
func InputNames(descriptor, count int) []string {
	if count <= 0 {
		return nil
	}
	names := make([]string, count)
	switch descriptor {
	case DescriptorRecursive:
		fillIndexed(names, "x")
		if count >= 2 {
			names[count-2] = "n"
		}
		names[count-1] = "z"
	case DescriptorMinimized:
		fillIndexed(names, "x")
		names[count-1] = "y"
	case DescriptorComposed:
		fillIndexed(names, "y")
	default:
		fillIndexed(names, "x")
	}
	return names
}

func fillIndexed(names []string, prefix string) {
	for i := range names {
		names[i] = prefix + strconv.Itoa(i+1)
	}
}
