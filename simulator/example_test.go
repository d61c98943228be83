package simulator_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/qrand/circuit"
	"github.com/jonwraymond/qrand/simulator"
)

func ExampleSimulator_Run() {
	sim := simulator.New(simulator.WithSeed(1))

	counts, err := sim.Run(context.Background(), circuit.Prepare1(), 8)
	if err != nil {
		fmt.Println("run:", err)
		return
	}

	fmt.Println(counts.Dominant())
	fmt.Println(counts.Total())
	// Output:
	// 1
	// 8
}
