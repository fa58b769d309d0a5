// Package pipeline turns raw plant readings into typed events and routes
// them into the core. Ingestion is decoupled from handling by a bounded
// queue so a burst on the feed never blocks the broker callback.
package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"cellcore/feed"
)

// Kind tags a classified event.
type Kind int

const (
	KindUnknown Kind = iota
	KindTelemetry
	KindProductionCount
	KindQualityResult
	KindInventoryLevel
	KindSystemAlarm
)

func (k Kind) String() string {
	switch k {
	case KindTelemetry:
		return "telemetry"
	case KindProductionCount:
		return "production_count"
	case KindQualityResult:
		return "quality_result"
	case KindInventoryLevel:
		return "inventory_level"
	case KindSystemAlarm:
		return "system_alarm"
	default:
		return "unknown"
	}
}

// Event is one classified reading. Which fields are meaningful depends on
// Kind: telemetry and production counts carry Conveyor, inventory levels
// carry Warehouse and Material, alarms and quality results carry Metric.
type Event struct {
	Kind      Kind
	Conveyor  string
	Warehouse string
	Material  string
	Metric    string
	Value     float64
	Active    bool
	Raw       feed.Reading
}

// warehouse node suffixes use the short site letter; storage uses full IDs.
var warehouseAlias = map[string]string{
	"A": "WH_A",
	"B": "WH_B",
	"C": "WH_C",
}

// Classify decodes a reading's source node ID into a typed event. Node IDs
// follow the gateway's dotted scheme, e.g. Conveyor.C1.Speed,
// Production.C2.Count, Quality.PassRate, Warehouse.A.Anode,
// System.EmergencyStop.
func Classify(r feed.Reading) (Event, error) {
	parts := strings.Split(r.SourceID, ".")
	if len(parts) < 2 {
		return Event{}, fmt.Errorf("pipeline: unrecognized node id %q", r.SourceID)
	}

	ev := Event{Raw: r}
	switch parts[0] {
	case "Conveyor":
		if len(parts) != 3 {
			return Event{}, fmt.Errorf("pipeline: malformed conveyor node %q", r.SourceID)
		}
		ev.Kind = KindTelemetry
		ev.Conveyor = parts[1]
		ev.Metric = strings.ToLower(parts[2])
		switch ev.Metric {
		case "running":
			b, err := toBool(r.Value)
			if err != nil {
				return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
			}
			ev.Active = b
		case "speed", "load":
			v, err := toFloat(r.Value)
			if err != nil {
				return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
			}
			ev.Value = v
		default:
			return Event{}, fmt.Errorf("pipeline: unknown conveyor metric %q", r.SourceID)
		}

	case "Production":
		if len(parts) != 3 || parts[2] != "Count" {
			return Event{}, fmt.Errorf("pipeline: malformed production node %q", r.SourceID)
		}
		v, err := toFloat(r.Value)
		if err != nil {
			return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
		}
		ev.Kind = KindProductionCount
		ev.Conveyor = parts[1]
		ev.Value = v

	case "Quality":
		ev.Kind = KindQualityResult
		ev.Metric = strings.ToLower(parts[1])
		switch ev.Metric {
		case "passrate":
			ev.Metric = "pass_rate"
			v, err := toFloat(r.Value)
			if err != nil {
				return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
			}
			ev.Value = v
		case "lasttestresult":
			ev.Metric = "last_test_result"
			b, err := toBool(r.Value)
			if err != nil {
				return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
			}
			ev.Active = b
		default:
			return Event{}, fmt.Errorf("pipeline: unknown quality metric %q", r.SourceID)
		}

	case "Warehouse":
		if len(parts) != 3 {
			return Event{}, fmt.Errorf("pipeline: malformed warehouse node %q", r.SourceID)
		}
		wh, ok := warehouseAlias[parts[1]]
		if !ok {
			wh = parts[1]
		}
		v, err := toFloat(r.Value)
		if err != nil {
			return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
		}
		ev.Kind = KindInventoryLevel
		ev.Warehouse = wh
		ev.Material = strings.ToLower(parts[2])
		ev.Value = v

	case "System":
		b, err := toBool(r.Value)
		if err != nil {
			return Event{}, fmt.Errorf("pipeline: %s: %w", r.SourceID, err)
		}
		ev.Kind = KindSystemAlarm
		ev.Metric = snakeCase(parts[1])
		ev.Active = b

	default:
		return Event{}, fmt.Errorf("pipeline: unrecognized node id %q", r.SourceID)
	}
	return ev, nil
}

// toFloat accepts the numeric encodings JSON and string payloads produce.
func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(x)))
		if err != nil {
			return false, fmt.Errorf("not a bool: %q", x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("not a bool: %T", v)
	}
}

// snakeCase splits CamelCase node segments: EmergencyStop -> emergency_stop.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
