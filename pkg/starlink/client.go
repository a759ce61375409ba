package starlink

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fullstorydev/grpcurl"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/reflection/grpc_reflection_v1alpha"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// Client talks to a Starlink dish over its local gRPC API. The dish does
// not publish protos, so methods are invoked dynamically through server
// reflection, the same way grpcurl does.
type Client struct {
	host    string
	port    int
	timeout time.Duration
	logger  *logx.Logger
}

// NewClient creates a dish client.
func NewClient(host string, port int, timeout time.Duration, logger *logx.Logger) *Client {
	return &Client{host: host, port: port, timeout: timeout, logger: logger}
}

// DefaultClient uses the dish's factory address.
func DefaultClient(logger *logx.Logger) *Client {
	return NewClient("192.168.100.1", 9200, 10*time.Second, logger)
}

type apiMethod string

const (
	methodGetStatus      apiMethod = "get_status"
	methodGetDiagnostics apiMethod = "get_diagnostics"
	methodGetLocation    apiMethod = "get_location"
)

// deviceHandle is the single RPC every dish request goes through.
const deviceHandle = "SpaceX.API.Device.Device/Handle"

// call invokes one dish method and returns its JSON reply.
func (c *Client) call(ctx context.Context, method apiMethod) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := grpc.DialContext(callCtx, fmt.Sprintf("%s:%d", c.host, c.port),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", fmt.Errorf("failed to connect to dish: %w", err)
	}
	defer conn.Close()

	reflectionClient := grpcreflect.NewClient(callCtx, grpc_reflection_v1alpha.NewServerReflectionClient(conn))
	descSource := grpcurl.DescriptorSourceFromServer(callCtx, reflectionClient)

	requestJSON := fmt.Sprintf(`{"%s":{}}`, string(method))
	requestReader := grpcurl.NewJSONRequestParser(strings.NewReader(requestJSON), grpcurl.AnyResolverFromDescriptorSource(descSource))

	var responseBuffer strings.Builder
	formatter := grpcurl.NewJSONFormatter(false, grpcurl.AnyResolverFromDescriptorSource(descSource))
	handler := &grpcurl.DefaultEventHandler{
		Out:       &responseBuffer,
		Formatter: formatter,
	}

	if err := grpcurl.InvokeRPC(callCtx, descSource, conn, deviceHandle, nil, handler, requestReader.Next); err != nil {
		return "", fmt.Errorf("dish RPC %s failed: %w", method, err)
	}

	return responseBuffer.String(), nil
}

// IsAvailable reports whether the dish API answers on its gRPC port.
func (c *Client) IsAvailable(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.host, c.port))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Location fetches the dish's fused GPS position. Falls back to the
// diagnostics location block when get_location is not enabled on the
// dish (it requires opting in via the Starlink app).
func (c *Client) Location(ctx context.Context) (*geo.Position, error) {
	raw, err := c.call(ctx, methodGetLocation)
	if err == nil {
		pos, parseErr := parseLocation(raw)
		if parseErr == nil {
			return pos, nil
		}
		err = parseErr
	}

	c.logger.Debug("starlink_get_location_failed", "error", err)

	raw, diagErr := c.call(ctx, methodGetDiagnostics)
	if diagErr != nil {
		return nil, fmt.Errorf("dish location unavailable: %w", err)
	}
	return parseDiagnosticsLocation(raw)
}

// GPS returns the dish's GPS receiver status from get_status.
func (c *Client) GPS(ctx context.Context) (*GPSStatus, error) {
	raw, err := c.call(ctx, methodGetStatus)
	if err != nil {
		return nil, err
	}

	var status statusResponse
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}

	return &GPSStatus{
		Valid:      status.DishGetStatus.GPSStats.GPSValid,
		Satellites: status.DishGetStatus.GPSStats.GPSSats,
		Inhibited:  status.DishGetStatus.GPSStats.InhibitGPS,
		SNR:        status.DishGetStatus.SNR,
	}, nil
}

func parseLocation(raw string) (*geo.Position, error) {
	var resp locationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse location response: %w", err)
	}

	lla := resp.GetLocation.LLA
	if lla.Lat == 0 && lla.Lon == 0 {
		return nil, fmt.Errorf("dish reported no position")
	}

	alt := lla.Alt
	pos := &geo.Position{
		Latitude:  lla.Lat,
		Longitude: lla.Lon,
		Accuracy:  resp.GetLocation.SigmaM,
		Altitude:  &alt,
		Timestamp: time.Now(),
	}
	if pos.Accuracy <= 0 {
		// Older dish firmware omits sigma; the fused fix is typically
		// within a few meters.
		pos.Accuracy = 5.0
	}
	return pos, nil
}

func parseDiagnosticsLocation(raw string) (*geo.Position, error) {
	var resp diagnosticsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse diagnostics response: %w", err)
	}

	loc := resp.DishGetDiagnostics.Location
	if !loc.Enabled {
		return nil, fmt.Errorf("dish location access is disabled")
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return nil, fmt.Errorf("dish reported no position")
	}

	alt := loc.AltitudeMeters
	pos := &geo.Position{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Accuracy:  loc.UncertaintyMeters,
		Altitude:  &alt,
		Timestamp: time.Now(),
	}
	if !loc.UncertaintyMetersValid || pos.Accuracy <= 0 {
		pos.Accuracy = 10.0
	}
	return pos, nil
}
