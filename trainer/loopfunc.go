package trainer

import (
	"context"
	"fmt"

	"github.com/neurlang/mldemos/datasets"
)

// Fit trains t on src for epochs epochs, or Config.Epochs when epochs is not
// positive. Every batch is trained, stepped and closed before the next one is
// drawn; NotifyEpoch ends every epoch. The context is checked between batches.
func Fit(ctx context.Context, t *Trainer, src datasets.Source, epochs int) error {
	if epochs <= 0 {
		epochs = t.cfg.Epochs
	}
	if epochs <= 0 {
		return fmt.Errorf("trainer: epochs must be > 0 (got %d)", epochs)
	}
	if !src.Shape().Eq(t.inShape) {
		return fmt.Errorf("trainer: dataset samples %v do not match network input %v", src.Shape(), t.inShape)
	}
	if src.Classes() != t.classes {
		return fmt.Errorf("trainer: dataset has %d classes, network outputs %d", src.Classes(), t.classes)
	}
	for e := 0; e < epochs; e++ {
		it := t.IterateDataset(src)
		if it.Len() == 0 && it.Err() == nil {
			return fmt.Errorf("trainer: dataset of %d samples yields no batch of %d", src.Len(), t.cfg.BatchSize)
		}
		for it.Next() {
			batch := it.Batch()
			if err := ctx.Err(); err != nil {
				batch.Close()
				return err
			}
			err := t.TrainBatch(batch)
			if err == nil {
				err = t.Step()
			}
			batch.Close()
			if err != nil {
				return err
			}
		}
		if err := it.Err(); err != nil {
			return err
		}
		t.NotifyEpoch()
	}
	return nil
}
