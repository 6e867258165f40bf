package types

// Environment is the deployment mode of the process
type Environment string

const (
	EnvironmentCloud Environment = "cloud"
	EnvironmentLocal Environment = "local"
)

// IsCloud reports whether the process runs on the managed cloud deployment
func (e Environment) IsCloud() bool {
	return e == EnvironmentCloud
}

// Label returns the human readable name shown on the home page
func (e Environment) Label() string {
	switch e {
	case EnvironmentCloud:
		return "Cloud"
	case EnvironmentLocal:
		return "Local"
	default:
		return string(e)
	}
}

// String returns the string representation of the environment
func (e Environment) String() string {
	return string(e)
}
