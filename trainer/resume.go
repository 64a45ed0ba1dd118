package trainer

import (
	"errors"
	"io/fs"

	"github.com/rs/zerolog/log"

	"github.com/neurlang/mldemos/model"
)

// Resume loads the model saved in dir when resume is set and returns the number
// of epochs it was trained for. A missing model is not an error: training starts
// from scratch.
func Resume(m *model.Model, dir string, resume bool) (int, error) {
	if !resume {
		return 0, nil
	}
	if err := m.Load(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("dir", dir).Msg("no saved model to resume from, starting from scratch")
			return 0, nil
		}
		return 0, err
	}
	log.Info().Str("dir", dir).Int("epoch", m.Epoch()).Msg("resuming training")
	return m.Epoch(), nil
}
