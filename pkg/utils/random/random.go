package random

// codeAlphabet leaves out 0, O, 1 and I so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Code returns a human-facing code such as a game code drawn from src.
func Code(src Source, length int) string {
	if length <= 0 {
		return ""
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = codeAlphabet[src.IntN(len(codeAlphabet))]
	}
	return string(out)
}
