package grpcservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"go.klb.dev/sharedclip/internal/registry"
)

// Client calls the SharedClipboard service. Errors that carry a registry
// status are converted back so callers can use errors.Is with the
// registry sentinels.
type Client struct {
	cc grpc.ClientConnInterface
}

var errMalformed = errors.New("malformed response")

// NewClient returns a Client using cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Create registers deviceID.
func (c *Client) Create(ctx context.Context, deviceID string) error {
	return c.invoke(ctx, "Create", wrapperspb.String(deviceID), new(emptypb.Empty))
}

// Remove unregisters deviceID.
func (c *Client) Remove(ctx context.Context, deviceID string) error {
	return c.invoke(ctx, "Remove", wrapperspb.String(deviceID), new(emptypb.Empty))
}

// DeviceCount returns the number of registered devices.
func (c *Client) DeviceCount(ctx context.Context) (int, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.invoke(ctx, "DeviceCount", new(emptypb.Empty), out); err != nil {
		return 0, err
	}
	return int(out.GetValue()), nil
}

// HistoryCount returns the history length of deviceID.
func (c *Client) HistoryCount(ctx context.Context, deviceID string) (int, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.invoke(ctx, "HistoryCount", wrapperspb.String(deviceID), out); err != nil {
		return 0, err
	}
	return int(out.GetValue()), nil
}

// SetContent writes content to deviceID, or broadcasts when deviceID is empty.
// It returns the server's status message.
func (c *Client) SetContent(ctx context.Context, deviceID, content string) (string, error) {
	fields := map[string]*structpb.Value{
		"content": structpb.NewStringValue(content),
	}
	if deviceID != "" {
		fields["device_id"] = structpb.NewStringValue(deviceID)
	}
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, "SetContent", &structpb.Struct{Fields: fields}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Get returns the current value and history of deviceID.
func (c *Client) Get(ctx context.Context, deviceID string) (registry.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Get", wrapperspb.String(deviceID), out); err != nil {
		return registry.Snapshot{}, err
	}
	return structToSnapshot(out)
}

// Paste returns the raw current value of deviceID.
func (c *Client) Paste(ctx context.Context, deviceID string) ([]byte, error) {
	out := new(httpbody.HttpBody)
	if err := c.invoke(ctx, "Paste", wrapperspb.String(deviceID), out); err != nil {
		return nil, err
	}
	return out.GetData(), nil
}

// Devices lists registered devices in registration order.
func (c *Client) Devices(ctx context.Context) ([]registry.DeviceInfo, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, "Devices", new(emptypb.Empty), out); err != nil {
		return nil, err
	}
	return structToDevices(out)
}

func structToSnapshot(st *structpb.Struct) (registry.Snapshot, error) {
	f := st.GetFields()
	id, ok := f["device_id"]
	if !ok {
		return registry.Snapshot{}, fmt.Errorf("get: %w: no device_id", errMalformed)
	}
	snap := registry.Snapshot{
		DeviceID:   id.GetStringValue(),
		HasCurrent: f["has_current"].GetBoolValue(),
		Current:    f["current"].GetStringValue(),
	}
	for _, v := range f["history"].GetListValue().GetValues() {
		snap.History = append(snap.History, v.GetStringValue())
	}
	if ts := f["updated_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return registry.Snapshot{}, fmt.Errorf("get: %w: updated_at: %v", errMalformed, err)
		}
		snap.UpdatedAt = t
	}
	return snap, nil
}

func structToDevices(st *structpb.Struct) ([]registry.DeviceInfo, error) {
	list, ok := st.GetFields()["devices"]
	if !ok {
		return nil, fmt.Errorf("devices: %w: no devices field", errMalformed)
	}
	var out []registry.DeviceInfo
	for _, v := range list.GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		d := registry.DeviceInfo{
			DeviceID:     f["device_id"].GetStringValue(),
			HistoryCount: int(f["count"].GetNumberValue()),
			HasCurrent:   f["has_current"].GetBoolValue(),
		}
		if ts := f["registered_at"].GetStringValue(); ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				d.RegisteredAt = t
			}
		}
		if ts := f["updated_at"].GetStringValue(); ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				d.UpdatedAt = t
			}
		}
		out = append(out, d)
	}
	return out, nil
}
