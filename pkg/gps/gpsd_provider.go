package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Jtaz8681/boat-app/pkg/geo"
	"github.com/Jtaz8681/boat-app/pkg/logx"
)

// GpsdProvider reads fixes from a gpsd daemon over its JSON/TCP
// protocol. This is the primary onboard receiver path; gpsd multiplexes
// whatever NMEA hardware the vessel carries.
type GpsdProvider struct {
	host   string
	port   int
	logger *logx.Logger
	health sourceHealth

	mu            sync.Mutex
	lastFix       *geo.Position
	lastAvailable bool
	lastProbe     time.Time
}

// NewGpsdProvider creates a provider for the given gpsd endpoint; the
// daemon's default port is 2947.
func NewGpsdProvider(host string, port int, logger *logx.Logger) *GpsdProvider {
	if port <= 0 {
		port = 2947
	}
	return &GpsdProvider{host: host, port: port, logger: logger}
}

func (gp *GpsdProvider) Name() string { return "gpsd" }

func (gp *GpsdProvider) addr() string {
	return net.JoinHostPort(gp.host, fmt.Sprintf("%d", gp.port))
}

// Supported probes the gpsd socket, caching the result briefly.
func (gp *GpsdProvider) Supported() bool {
	gp.mu.Lock()
	if time.Since(gp.lastProbe) < availabilityTTL {
		available := gp.lastAvailable
		gp.mu.Unlock()
		return available
	}
	gp.mu.Unlock()

	conn, err := net.DialTimeout("tcp", gp.addr(), 2*time.Second)
	available := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	gp.mu.Lock()
	gp.lastAvailable = available
	gp.lastProbe = time.Now()
	gp.mu.Unlock()

	gp.health.setAvailable(available)
	return available
}

// tpvReport is gpsd's time-position-velocity message. Mode 2 is a 2D
// fix, 3 a 3D fix; anything below means no fix yet.
type tpvReport struct {
	Class  string  `json:"class"`
	Mode   int     `json:"mode"`
	Time   string  `json:"time"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	AltHAE float64 `json:"altHAE"`
	Alt    float64 `json:"alt"`
	EPH    float64 `json:"eph"` // horizontal position error, meters
	EPX    float64 `json:"epx"`
	EPY    float64 `json:"epy"`
	EPV    float64 `json:"epv"` // vertical position error, meters
	Track  float64 `json:"track"`
	Speed  float64 `json:"speed"`
}

// CurrentPosition connects, enables the watch stream and returns the
// first fix, honoring both ctx and opts.Timeout. A cached fix no older
// than opts.MaxAge is reused without touching the daemon.
func (gp *GpsdProvider) CurrentPosition(ctx context.Context, opts Options) (*geo.Position, error) {
	gp.mu.Lock()
	if gp.lastFix != nil && opts.MaxAge > 0 && gp.lastFix.Age() <= opts.MaxAge {
		cached := gp.lastFix
		gp.mu.Unlock()
		return cached, nil
	}
	gp.mu.Unlock()

	deadline := time.Now().Add(opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	conn, reader, err := gp.connect(deadline)
	if err != nil {
		gp.health.recordError(err)
		return nil, WrapError(CodePositionUnavailable, "gpsd not reachable", err)
	}
	defer conn.Close()

	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			gp.health.recordError(err)
			return nil, WrapError(CodeUnknown, "gpsd connection error", err)
		}
		line, err := reader.ReadBytes('\n')
		if err != nil {
			gp.health.recordError(err)
			if netTimeout(err) {
				return nil, WrapError(CodeTimeout, "no fix from gpsd before deadline", err)
			}
			return nil, WrapError(CodePositionUnavailable, "gpsd stream ended", err)
		}

		pos, ok := parseTPV(line)
		if !ok {
			continue
		}

		gp.health.recordSuccess(time.Since(start))
		gp.mu.Lock()
		gp.lastFix = pos
		gp.mu.Unlock()
		return pos, nil
	}
}

// WatchPosition holds a watch-enabled connection open and delivers every
// fix gpsd reports. Loss of fix surfaces through onError without
// terminating the watch; gpsd keeps streaming once satellites return.
func (gp *GpsdProvider) WatchPosition(ctx context.Context, opts Options, onUpdate func(*geo.Position), onError func(error)) (*Watch, error) {
	deadline := time.Now().Add(opts.Timeout)
	conn, reader, err := gp.connect(deadline)
	if err != nil {
		gp.health.recordError(err)
		return nil, WrapError(CodePositionUnavailable, "gpsd not reachable", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer conn.Close()

		// Closing the connection is what actually unblocks the read.
		go func() {
			<-watchCtx.Done()
			_ = conn.Close()
		}()

		hadFix := false
		for {
			if err := conn.SetReadDeadline(time.Now().Add(time.Minute)); err != nil {
				return
			}
			line, err := reader.ReadBytes('\n')
			if watchCtx.Err() != nil {
				return
			}
			if err != nil {
				if netTimeout(err) {
					onError(NewError(CodeTimeout, "gpsd stopped reporting"))
					continue
				}
				gp.logger.Warn("gpsd_stream_ended", "error", err)
				onError(WrapError(CodePositionUnavailable, "gpsd stream ended", err))
				return
			}

			var probe struct {
				Class string `json:"class"`
				Mode  int    `json:"mode"`
			}
			if json.Unmarshal(line, &probe) != nil || probe.Class != "TPV" {
				continue
			}
			if probe.Mode < 2 {
				if hadFix {
					hadFix = false
					gp.logger.Warn("gpsd_fix_lost", "mode", probe.Mode)
					onError(NewError(CodePositionUnavailable, "gps fix lost"))
				}
				continue
			}

			pos, ok := parseTPV(line)
			if !ok {
				continue
			}
			hadFix = true
			gp.health.recordSuccess(0)
			gp.mu.Lock()
			gp.lastFix = pos
			gp.mu.Unlock()
			onUpdate(pos)
		}
	}()

	return NewWatch(cancel, done), nil
}

// HealthStatus reports delivery health for status surfaces.
func (gp *GpsdProvider) HealthStatus() SourceHealth {
	return gp.health.snapshot()
}

// connect dials gpsd and enables the JSON watch stream.
func (gp *GpsdProvider) connect(deadline time.Time) (net.Conn, *bufio.Reader, error) {
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.Dial("tcp", gp.addr())
	if err != nil {
		return nil, nil, err
	}

	if _, err := conn.Write([]byte(`?WATCH={"enable":true,"json":true};` + "\n")); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return conn, bufio.NewReader(conn), nil
}

// parseTPV converts a TPV line with a usable fix into a Position.
func parseTPV(line []byte) (*geo.Position, bool) {
	var tpv tpvReport
	if err := json.Unmarshal(line, &tpv); err != nil {
		return nil, false
	}
	if tpv.Class != "TPV" || tpv.Mode < 2 {
		return nil, false
	}

	pos := &geo.Position{
		Latitude:  tpv.Lat,
		Longitude: tpv.Lon,
		Accuracy:  horizontalError(&tpv),
		Timestamp: time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339, tpv.Time); err == nil {
		pos.Timestamp = ts
	}
	if tpv.Mode >= 3 {
		alt := tpv.AltHAE
		if alt == 0 {
			alt = tpv.Alt
		}
		pos.Altitude = &alt
		if tpv.EPV > 0 {
			epv := tpv.EPV
			pos.AltitudeAccuracy = &epv
		}
	}
	if tpv.Speed > 0 {
		speed := tpv.Speed
		pos.Speed = &speed
		// gpsd only reports track while moving; a parked vessel has no
		// meaningful heading.
		track := tpv.Track
		pos.Heading = &track
	}

	return pos, true
}

// horizontalError picks the best accuracy estimate the receiver offers.
func horizontalError(tpv *tpvReport) float64 {
	if tpv.EPH > 0 {
		return tpv.EPH
	}
	if tpv.EPX > 0 || tpv.EPY > 0 {
		if tpv.EPX > tpv.EPY {
			return tpv.EPX
		}
		return tpv.EPY
	}
	// Receiver gave no error estimate; assume a consumer-grade fix.
	return 15.0
}

func netTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
