package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestResourceServiceName(t *testing.T) {
	t.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment=test")

	res, err := newResource(context.Background(), Config{ServiceName: "espweb-test"})
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}

	values := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		values[kv.Key] = kv.Value.Emit()
	}

	if values["service.name"] != "espweb-test" {
		t.Errorf("Expected %s, got %s", "espweb-test", values["service.name"])
	}
	if values["deployment.environment"] != "test" {
		t.Errorf("Expected %s, got %s", "test", values["deployment.environment"])
	}
}
