package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"wastelog/backend/services/dashboard-service/internal/domain"
)

// NodeRedClient talks to the Node-RED flows that own device data.
type NodeRedClient struct {
	base *BaseClient
}

// NewNodeRedClient returns client.
func NewNodeRedClient(baseURL string, httpClient HTTPDoer) *NodeRedClient {
	return &NodeRedClient{base: NewBaseClient(baseURL, httpClient)}
}

func deviceQuery(deviceID string) url.Values {
	return url.Values{"deviceId": []string{deviceID}}
}

// History returns the raw activity log payload for a device.
func (c *NodeRedClient) History(ctx context.Context, deviceID string) ([]byte, error) {
	return c.base.Expect(ctx, http.MethodGet, "/api/history", deviceQuery(deviceID), nil)
}

// Geofences lists all geofences.
func (c *NodeRedClient) Geofences(ctx context.Context) ([]domain.Geofence, error) {
	body, err := c.base.Expect(ctx, http.MethodGet, "/api/geofences", nil, nil)
	if err != nil {
		return nil, err
	}
	var fences []domain.Geofence
	if err := json.Unmarshal(body, &fences); err != nil {
		return nil, fmt.Errorf("decode geofences: %w", err)
	}
	return fences, nil
}

// CreateGeofence stores a new geofence.
func (c *NodeRedClient) CreateGeofence(ctx context.Context, fence domain.Geofence) error {
	return c.writeGeofence(ctx, http.MethodPost, "/api/geofences", fence)
}

// UpdateGeofence replaces the geofence with the given id.
func (c *NodeRedClient) UpdateGeofence(ctx context.Context, id string, fence domain.Geofence) error {
	return c.writeGeofence(ctx, http.MethodPut, geofencePath(id), fence)
}

// DeleteGeofence removes a geofence.
func (c *NodeRedClient) DeleteGeofence(ctx context.Context, id string) error {
	_, err := c.base.Expect(ctx, http.MethodDelete, geofencePath(id), nil, nil)
	return err
}

func (c *NodeRedClient) writeGeofence(ctx context.Context, method, path string, fence domain.Geofence) error {
	// the id travels in the path, never in the body
	fence.ID = ""
	body, err := json.Marshal(fence)
	if err != nil {
		return err
	}
	_, err = c.base.Expect(ctx, method, path, nil, body)
	return err
}

func geofencePath(id string) string {
	return "/api/geofences/" + url.PathEscape(strings.TrimSpace(id))
}

// RealtimeLocation returns the last position stored for the device.
func (c *NodeRedClient) RealtimeLocation(ctx context.Context, deviceID string) (domain.Location, error) {
	body, err := c.base.Expect(ctx, http.MethodGet, "/api/realtimelocation", deviceQuery(deviceID), nil)
	if err != nil {
		return domain.Location{}, err
	}
	var loc domain.Location
	if err := json.Unmarshal(body, &loc); err != nil {
		return domain.Location{}, fmt.Errorf("decode location: %w", err)
	}
	if loc.DeviceID == "" {
		loc.DeviceID = deviceID
	}
	return loc, nil
}

// TriggerMeasurement asks the device to take a volume reading. Node-RED
// answers 202 once the command is queued.
func (c *NodeRedClient) TriggerMeasurement(ctx context.Context) error {
	_, err := c.base.Expect(ctx, http.MethodPost, "/api/measure", nil, nil, http.StatusAccepted)
	return err
}

// CurrentVolume returns the latest manual measurement. ErrNotFound means the
// device has not reported one yet.
func (c *NodeRedClient) CurrentVolume(ctx context.Context, deviceID string) (domain.CurrentVolume, error) {
	body, err := c.base.Expect(ctx, http.MethodGet, "/api/current_volume", deviceQuery(deviceID), nil)
	if err != nil {
		return domain.CurrentVolume{}, err
	}
	var result domain.CurrentVolume
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.CurrentVolume{}, fmt.Errorf("decode current volume: %w", err)
	}
	if result.DeviceID == "" {
		result.DeviceID = deviceID
	}
	return result, nil
}
