package keysession

// Provider identifies the video-generation service a stored credential
// belongs to.
type Provider string

const (
	ProviderSora   Provider = "sora"
	ProviderVeo    Provider = "veo"
	ProviderRunway Provider = "runway"
)

// Valid reports whether the provider is one of the known constants.
func (p Provider) Valid() bool {
	switch p {
	case ProviderSora, ProviderVeo, ProviderRunway:
		return true
	default:
		return false
	}
}

func (p Provider) String() string {
	return string(p)
}
