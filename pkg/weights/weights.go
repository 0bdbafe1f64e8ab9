// Package weights provides the deploy-ordering weights of the services hal
// manages. Services with lower weights are deployed first and deleted last.
package weights

// Default weights per service.
const (
	WeightRedis            = 0
	WeightClouddriver      = 10
	WeightFront50          = 10
	WeightFiat             = 10
	WeightOrca             = 20
	WeightEcho             = 20
	WeightIgor             = 20
	WeightRosco            = 20
	WeightKayenta          = 20
	WeightGate             = 30
	WeightDeck             = 40
	WeightMonitoringDaemon = 50
	WeightDefault          = 100
)

var serviceWeights = map[string]int{
	"redis":             WeightRedis,
	"clouddriver":       WeightClouddriver,
	"front50":           WeightFront50,
	"fiat":              WeightFiat,
	"orca":              WeightOrca,
	"echo":              WeightEcho,
	"igor":              WeightIgor,
	"rosco":             WeightRosco,
	"kayenta":           WeightKayenta,
	"gate":              WeightGate,
	"deck":              WeightDeck,
	"monitoring-daemon": WeightMonitoringDaemon,
}

// GetWeight returns the weight for a service name.
// Unknown services get WeightDefault.
func GetWeight(service string) int {
	if weight, ok := serviceWeights[service]; ok {
		return weight
	}
	return WeightDefault
}
