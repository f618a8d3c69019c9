// Package slug converts arbitrary strings into URL- and object-key-safe
// slugs, folding Unicode diacritics to ASCII and collapsing every other
// non-alphanumeric run into a configurable separator.
//
// It exists to turn user-written render prompts, scene titles, and project
// names into readable storage keys and identifiers. "Café at Night, take 2"
// becomes "cafe-at-night-take-2", which is safe in URLs, file names, and
// S3 object keys alike.
//
// # Usage
//
//	key := slug.Make("A lighthouse in a storm")
//	// "a-lighthouse-in-a-storm"
//
//	key = slug.Make("Café & Restaurant intro")
//	// "cafe-restaurant-intro"
//
// Long inputs are truncated on a rune boundary, so multi-byte characters are
// never split:
//
//	key = slug.Make(prompt, slug.MaxLength(48))
//
// # Options
//
//   - MaxLength(n) truncates the slug to n runes, excluding any suffix, and
//     trims a trailing separator left by the cut.
//   - Separator(s) replaces the default "-" between words.
//   - Lowercase(false) preserves the input casing.
//   - WithSuffix(n) appends n random alphanumeric characters for collision
//     resistance when slugs become object keys.
//
// Combining a length limit with a suffix keeps keys short but unique:
//
//	key = slug.Make("Storyboard scene three", slug.MaxLength(24), slug.WithSuffix(6))
//	// "storyboard-scene-three-k2x9fq"
//
// # Edge Cases
//
// Input with no usable characters ("!!!", emoji-only strings) produces an
// empty slug; pair WithSuffix with such inputs when a non-empty key is
// required. Diacritic folding covers combining marks only: scripts that do
// not decompose to ASCII (Cyrillic, CJK) are dropped by the alphanumeric
// filter rather than transliterated.
package slug
