package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/serialbridge/pkg/host"
	"github.com/robotalks/serialbridge/pkg/wire"
)

// Record is a Packet attributed to its device.
type Record struct {
	Device      string
	Name        string
	Format      string
	Sequence    int64
	DeviceTime  time.Duration
	ReceiveTime time.Time
	Values      []wire.Value
}

// NewRecord creates a Record from a Packet of a device.
func NewRecord(device string, p *host.Packet) *Record {
	return &Record{
		Device:      device,
		Name:        p.Name,
		Format:      p.Format,
		Sequence:    p.Sequence,
		DeviceTime:  p.DeviceTime,
		ReceiveTime: p.ReceiveTime,
		Values:      p.Values,
	}
}

// Topic is the relative topic of the record, "device/name".
func (r *Record) Topic() string {
	return r.Device + "/" + r.Name
}

// String implements fmt.Stringer.
func (r *Record) String() string {
	return fmt.Sprintf("%s#%d@%s %v", r.Topic(), r.Sequence, r.DeviceTime, r.Values)
}

// Struct converts the record to a protobuf Struct.
// Times are in seconds. The sequence and integer values are decimal text,
// as Struct numbers are float64.
func (r *Record) Struct() *structpb.Struct {
	values := make([]*structpb.Value, len(r.Values))
	for n, v := range r.Values {
		switch v.Kind {
		case wire.KindInt:
			values[n] = stringValue(strconv.FormatInt(v.Int, 10))
		case wire.KindFloat:
			values[n] = numberValue(v.Float)
		default:
			values[n] = stringValue(v.Text)
		}
	}
	var receiveTime float64
	if !r.ReceiveTime.IsZero() {
		receiveTime = float64(r.ReceiveTime.UnixNano()) / 1e9
	}
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"device":       stringValue(r.Device),
			"name":         stringValue(r.Name),
			"format":       stringValue(r.Format),
			"seq":          stringValue(strconv.FormatInt(r.Sequence, 10)),
			"device_time":  numberValue(r.DeviceTime.Seconds()),
			"receive_time": numberValue(receiveTime),
			"values": {
				Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: values}},
			},
		},
	}
}

// RecordFromStruct converts a protobuf Struct back to a Record.
func RecordFromStruct(s *structpb.Struct) (*Record, error) {
	r := &Record{
		Device: s.Fields["device"].GetStringValue(),
		Name:   s.Fields["name"].GetStringValue(),
		Format: s.Fields["format"].GetStringValue(),
	}
	seq, err := strconv.ParseInt(s.Fields["seq"].GetStringValue(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seq: %v", err)
	}
	r.Sequence = seq
	r.DeviceTime = time.Duration(s.Fields["device_time"].GetNumberValue() * float64(time.Second))
	if t := s.Fields["receive_time"].GetNumberValue(); t != 0 {
		r.ReceiveTime = time.Unix(0, int64(t*1e9))
	}
	list := s.Fields["values"].GetListValue().GetValues()
	if len(list) != len(r.Format) {
		return nil, fmt.Errorf("format %q has %d fields, got %d", r.Format, len(r.Format), len(list))
	}
	r.Values = make([]wire.Value, len(list))
	for n, v := range list {
		switch wire.Kind(r.Format[n]) {
		case wire.KindInt:
			i, err := strconv.ParseInt(v.GetStringValue(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %d: %v", n, err)
			}
			r.Values[n] = wire.Int(i)
		case wire.KindFloat:
			r.Values[n] = wire.Float(v.GetNumberValue())
		default:
			r.Values[n] = wire.Text(v.GetStringValue())
		}
	}
	return r, nil
}

// Encode encodes the record in protobuf.
func (r *Record) Encode() ([]byte, error) {
	return proto.Marshal(r.Struct())
}

// DecodeRecord decodes a record encoded by Encode.
func DecodeRecord(pkt []byte) (*Record, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(pkt, &s); err != nil {
		return nil, err
	}
	return RecordFromStruct(&s)
}

type jsonRecord struct {
	Device      string        `json:"device"`
	Name        string        `json:"name"`
	Format      string        `json:"format"`
	Sequence    interface{}   `json:"seq"`
	DeviceTime  float64       `json:"device_time"`
	ReceiveTime float64       `json:"receive_time,omitempty"`
	Values      []interface{} `json:"values"`
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	rec := jsonRecord{
		Device:     r.Device,
		Name:       r.Name,
		Format:     r.Format,
		Sequence:   jsonInt(r.Sequence),
		DeviceTime: r.DeviceTime.Seconds(),
		Values:     make([]interface{}, len(r.Values)),
	}
	if !r.ReceiveTime.IsZero() {
		rec.ReceiveTime = float64(r.ReceiveTime.UnixNano()) / 1e9
	}
	for n, v := range r.Values {
		if v.Kind == wire.KindInt {
			rec.Values[n] = jsonInt(v.Int)
		} else {
			rec.Values[n] = v.Interface()
		}
	}
	return json.Marshal(&rec)
}

// maxSafeInt is the largest integer a float64 holds exactly.
const maxSafeInt = 1<<53 - 1

// jsonInt keeps v a JSON number when a float64 decoder reads it exactly,
// otherwise it becomes decimal text.
func jsonInt(v int64) interface{} {
	if v > maxSafeInt || v < -maxSafeInt {
		return strconv.FormatInt(v, 10)
	}
	return v
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}
