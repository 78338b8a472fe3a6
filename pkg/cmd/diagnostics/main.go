// diagnostics renders scoring diagnostics for a trained decoy ranking model.
//
// Usage:
//
//	diagnostics correlations --experiment=QA --model=ranking_model_11atomTypes --dataset=CASP
//	diagnostics funnels --epoch-start=30 --epoch-end=30
//	diagnostics losses
//	diagnostics sampling --sampling-epoch=1
//	diagnostics all --config=diagnostics.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
