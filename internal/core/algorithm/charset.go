package algorithm

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"containerCracker/internal/core/domain"
)

var charsetShortcuts = map[rune]string{
	'l': domain.CharsetLower,
	'u': domain.CharsetUpper,
	'd': domain.CharsetDigits,
	's': domain.CharsetSymbols,
	'h': domain.CharsetHexLower,
	'H': domain.CharsetHexUpper,
}

// ResolveCharset expands shortcut letters (l, u, d, s, h, H) into a sorted
// alphabet without duplicates. Unknown letters contribute nothing.
func ResolveCharset(shortcuts string) string {
	chars := mapset.NewThreadUnsafeSet[byte]()
	for _, shortcut := range shortcuts {
		class := charsetShortcuts[shortcut]
		for i := 0; i < len(class); i++ {
			chars.Add(class[i])
		}
	}

	alphabet := chars.ToSlice()
	slices.Sort(alphabet)
	return string(alphabet)
}

// CharsetHelp describes the shortcut letters for operator prompts.
func CharsetHelp() [][2]string {
	return [][2]string{
		{"l", "lowercase (a, b, c, ...)"},
		{"u", "uppercase (A, B, C, ...)"},
		{"d", "digits (0, 1, 2, ...)"},
		{"s", "symbols (e.g. !@#$ and space)"},
		{"h", "hex lower (0-9, a-f)"},
		{"H", "hex upper (0-9, A-F)"},
	}
}
