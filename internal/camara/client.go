package camara

import (
	"context"
	"net/http"

	"aeterna/internal/config"
)

// Mock payload keys for the typed operations
const (
	MockKeyPopulationDensity = "populationDensity"
	MockKeyLocationRetrieval = "locationRetrieval"
	MockKeySimSwap           = "simSwap"
	MockKeyQoSProfiles       = "qosProfiles"
	MockKeyQualityOnDemand   = "qualityOnDemand"
)

// Point is a WGS84 coordinate
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Area is a circular geofence
type Area struct {
	Type         string `json:"type"`
	Center       Point  `json:"center"`
	RadiusMeters int    `json:"radiusMeters"`
}

// CircleArea builds a Circle geofence
func CircleArea(lat, lon float64, radiusMeters int) Area {
	return Area{Type: "Circle", Center: Point{Lat: lat, Lon: lon}, RadiusMeters: radiusMeters}
}

// Duration is an amount of a time unit, e.g. {2, "HOUR"}
type Duration struct {
	Amount int    `json:"amount"`
	Unit   string `json:"unit"`
}

type TimeRange struct {
	Duration Duration `json:"duration"`
}

// DensityQuery is the body of a population density query
type DensityQuery struct {
	Area      Area       `json:"area"`
	TimeRange *TimeRange `json:"timeRange,omitempty"`
}

type Accuracy struct {
	Horizontal int `json:"horizontal"`
}

// LocationQuery is the body of a location retrieval
type LocationQuery struct {
	PhoneNumber       string   `json:"phoneNumber"`
	RequestedAccuracy Accuracy `json:"requestedAccuracy"`
}

// SimSwapQuery is the body of a SIM swap check
type SimSwapQuery struct {
	PhoneNumber string   `json:"phoneNumber"`
	MaxAge      Duration `json:"maxAge"`
}

type ApplicationServer struct {
	IPv4 string `json:"ipv4"`
	Port int    `json:"port"`
}

// QoDRequest asks for a quality-on-demand session
type QoDRequest struct {
	PhoneNumber       string            `json:"phoneNumber"`
	ProfileID         string            `json:"profileId"`
	Duration          Duration          `json:"duration"`
	ApplicationServer ApplicationServer `json:"applicationServer"`
}

// Client exposes the CAMARA network APIs used by the app over any Transport
type Client struct {
	transport Transport
	cfg       config.CamaraConfig
}

func NewClient(transport Transport, cfg config.CamaraConfig) *Client {
	return &Client{transport: transport, cfg: cfg}
}

// Transport returns the underlying transport
func (c *Client) Transport() Transport {
	return c.transport
}

// PopulationDensity queries crowd density over an area. A nil TimeRange
// defaults to the next two hours.
func (c *Client) PopulationDensity(ctx context.Context, q DensityQuery) (interface{}, error) {
	if q.TimeRange == nil {
		q.TimeRange = &TimeRange{Duration: Duration{Amount: 2, Unit: "HOUR"}}
	}
	return c.transport.Request(ctx, RequestContext{
		Method:  http.MethodPost,
		URL:     c.cfg.PopulationDensityURL,
		Scope:   c.cfg.DensityScope,
		MockKey: MockKeyPopulationDensity,
	}, q)
}

// RetrieveLocation locates a device. Accuracy defaults to 500m.
func (c *Client) RetrieveLocation(ctx context.Context, q LocationQuery) (interface{}, error) {
	if q.RequestedAccuracy.Horizontal <= 0 {
		q.RequestedAccuracy.Horizontal = 500
	}
	return c.transport.Request(ctx, RequestContext{
		Method:  http.MethodPost,
		URL:     c.cfg.LocationRetrievalURL,
		Scope:   c.cfg.LocationScope,
		MockKey: MockKeyLocationRetrieval,
	}, q)
}

// CheckSimSwap checks for a recent SIM change. MaxAge defaults to 3 days.
func (c *Client) CheckSimSwap(ctx context.Context, q SimSwapQuery) (interface{}, error) {
	if q.MaxAge.Amount <= 0 {
		q.MaxAge = Duration{Amount: 3, Unit: "DAY"}
	}
	return c.transport.Request(ctx, RequestContext{
		Method:  http.MethodPost,
		URL:     c.cfg.SimSwapURL,
		Scope:   c.cfg.SimSwapScope,
		MockKey: MockKeySimSwap,
	}, q)
}

// ListQoSProfiles lists the operator's QoS profiles
func (c *Client) ListQoSProfiles(ctx context.Context) (interface{}, error) {
	return c.transport.Request(ctx, RequestContext{
		Method:  http.MethodGet,
		URL:     c.cfg.QoSProfilesURL,
		Scope:   c.cfg.QoSProfilesScope,
		MockKey: MockKeyQoSProfiles,
	}, nil)
}

// RequestQualityOnDemand opens a QoD session, 30 minutes against the default
// application server unless the request says otherwise.
func (c *Client) RequestQualityOnDemand(ctx context.Context, q QoDRequest) (interface{}, error) {
	if q.Duration.Amount <= 0 {
		q.Duration = Duration{Amount: 30, Unit: "MINUTE"}
	}
	if q.ApplicationServer.IPv4 == "" {
		q.ApplicationServer = ApplicationServer{IPv4: "203.0.113.24", Port: 443}
	}
	return c.transport.Request(ctx, RequestContext{
		Method:  http.MethodPost,
		URL:     c.cfg.QualityOnDemandURL,
		Scope:   c.cfg.QoSScope,
		MockKey: MockKeyQualityOnDemand,
	}, q)
}
