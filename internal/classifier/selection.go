package classifier

// Kind identifies a provider adapter.
type Kind string

const (
	KindVision Kind = "vision"
	KindMock   Kind = "mockapi"
	KindLocal  Kind = "local"
)

// Availability holds the signals that decide which provider answers a request.
type Availability struct {
	VisionCredentials string // non-empty when the vision backend is configured
	MockEndpoint      string // non-empty when a remote mock endpoint is configured
}

// Select returns the single provider for a request: vision when configured,
// else the remote mock endpoint when configured, else the local generator.
// A failure of the chosen provider never falls through to the next one.
func Select(a Availability) Kind {
	switch {
	case a.VisionCredentials != "":
		return KindVision
	case a.MockEndpoint != "":
		return KindMock
	default:
		return KindLocal
	}
}
