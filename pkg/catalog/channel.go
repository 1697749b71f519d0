package catalog

import "fmt"

// Channel is a named Chrome release track. Each channel has exactly one
// current build at any time.
type Channel string

const (
	Stable Channel = "Stable"
	Beta   Channel = "Beta"
	Dev    Channel = "Dev"
	Canary Channel = "Canary"
)

// Channels lists all known release channels.
func Channels() []Channel {
	return []Channel{Stable, Beta, Dev, Canary}
}

// ParseChannel converts a case-insensitive channel name into a Channel.
func ParseChannel(name string) (Channel, error) {
	for _, c := range Channels() {
		if equalFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown release channel %q", name)
}

func (c Channel) String() string {
	return string(c)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 32
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 32
		}
		if ca != cb {
			return false
		}
	}
	return true
}
