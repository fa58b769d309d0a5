package pipeline

import (
	"testing"

	"cellcore/feed"
)

func TestClassifyTelemetry(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "Conveyor.C1.Speed", Value: 12.5})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindTelemetry || ev.Conveyor != "C1" || ev.Metric != "speed" || ev.Value != 12.5 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	ev, err = Classify(feed.Reading{SourceID: "Conveyor.C2.Running", Value: true})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindTelemetry || ev.Metric != "running" || !ev.Active {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyProductionCount(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "Production.C3.Count", Value: float64(42)})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindProductionCount || ev.Conveyor != "C3" || int(ev.Value) != 42 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyQuality(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "Quality.PassRate", Value: 97.2})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindQualityResult || ev.Metric != "pass_rate" || ev.Value != 97.2 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	ev, err = Classify(feed.Reading{SourceID: "Quality.LastTestResult", Value: false})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindQualityResult || ev.Metric != "last_test_result" || ev.Active {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyWarehouseAlias(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "Warehouse.A.Anode", Value: float64(30)})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindInventoryLevel || ev.Warehouse != "WH_A" || ev.Material != "anode" || int(ev.Value) != 30 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifySystemAlarm(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "System.EmergencyStop", Value: true})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Kind != KindSystemAlarm || ev.Metric != "emergency_stop" || !ev.Active {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyStringValues(t *testing.T) {
	ev, err := Classify(feed.Reading{SourceID: "Warehouse.B.Cathode", Value: "25"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.Warehouse != "WH_B" || int(ev.Value) != 25 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestClassifyRejectsMalformed(t *testing.T) {
	bad := []feed.Reading{
		{SourceID: "", Value: 1},
		{SourceID: "garbage", Value: 1},
		{SourceID: "Conveyor.C1.Voltage", Value: 1},
		{SourceID: "Conveyor.C1.Speed", Value: "not-a-number"},
		{SourceID: "Production.C1.Total", Value: 5},
		{SourceID: "Quality.Unknown", Value: 1},
	}
	for _, r := range bad {
		if _, err := Classify(r); err == nil {
			t.Errorf("expected error for %q", r.SourceID)
		}
	}
}
