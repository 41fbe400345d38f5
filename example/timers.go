package main

import (
	"fmt"

	"github.com/evkit/evloop"
	"github.com/evkit/evloop/internal/log"
)

// Schedules a repeating tick alongside one-shot timers and lets the loop run
// itself dry.
func main() {
	loop, err := evloop.NewLoop(evloop.Logger(log.Def))
	if err != nil {
		panic(err)
	}
	defer loop.Close()

	ticks := 0
	tick := evloop.NewTimer(loop)
	tick.Start(func(t *evloop.Timer) {
		ticks++
		fmt.Printf("tick %d at %dms\n", ticks, loop.Now())
		if ticks == 5 {
			t.Stop()
		}
	}, 100, 100)

	once := evloop.NewTimer(loop)
	once.Start(func(t *evloop.Timer) {
		fmt.Printf("one-shot at %dms, next tick due in %dms\n", loop.Now(), tick.DueIn())
	}, 250, 0)

	if err := loop.Run(); err != nil {
		panic(err)
	}
	fmt.Println("loop drained, exiting")
}
