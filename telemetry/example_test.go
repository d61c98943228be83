package telemetry_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/qrand"
	"github.com/jonwraymond/qrand/telemetry"
)

func Example() {
	ctx := context.Background()

	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.2.0"
	cfg.TraceExporter = "stdout"
	cfg.MetricExporter = "stdout"

	tp, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		fmt.Println("setup:", err)
		return
	}
	defer tp.Shutdown(ctx)

	// Clients built after Setup report through the global providers.
	c := qrand.New()
	_, _ = c.Bits(ctx, 8)
}
