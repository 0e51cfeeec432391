package queue

import (
	"errors"
	"fmt"

	"github.com/philippgille/gokv"

	"github.com/receiptexporter/receiptexporter/internal/pkg/config"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

// Keys of the persisted checkpoint.
const (
	KeyQueue    = "downloadQueue"
	KeyIndex    = "downloadIndex"
	KeyTotal    = "downloadTotal"
	KeySuccess  = "downloadSuccess"
	KeyFail     = "downloadFail"
	KeyCurrent  = "currentItem"
	KeySettings = "downloadSettings"
)

var checkpointKeys = []string{KeyQueue, KeyIndex, KeyTotal, KeySuccess, KeyFail, KeyCurrent, KeySettings}

// loadCheckpoint reads the checkpoint from s. It returns nil when no queue is
// persisted and ErrCorruptCheckpoint when the cursor keys are missing or break
// the cursor invariants.
func loadCheckpoint(s gokv.Store) (*models.Checkpoint, error) {
	cp := &models.Checkpoint{}

	found, err := s.Get(KeyQueue, &cp.Items)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	for key, dst := range map[string]*int{
		KeyIndex:   &cp.Index,
		KeyTotal:   &cp.Total,
		KeySuccess: &cp.Success,
		KeyFail:    &cp.Fail,
	} {
		found, err := s.Get(key, dst)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s is missing", ErrCorruptCheckpoint, key)
		}
	}

	current := models.WorkItem{}
	found, err = s.Get(KeyCurrent, &current)
	if err != nil {
		return nil, err
	}
	if found {
		cp.Current = &current
	}

	if !cp.Consistent() {
		return nil, fmt.Errorf("%w: index %d, total %d, success %d, fail %d, %d items",
			ErrCorruptCheckpoint, cp.Index, cp.Total, cp.Success, cp.Fail, len(cp.Items))
	}

	return cp, nil
}

// saveCheckpoint writes every field of cp. A nil Current removes the key.
// KeyQueue marks a queue as existing, so it is written last.
func saveCheckpoint(s gokv.Store, cp *models.Checkpoint) error {
	var errs []error

	errs = append(errs,
		s.Set(KeyIndex, cp.Index),
		s.Set(KeyTotal, cp.Total),
		s.Set(KeySuccess, cp.Success),
		s.Set(KeyFail, cp.Fail),
	)

	if cp.Current != nil {
		errs = append(errs, s.Set(KeyCurrent, cp.Current))
	} else {
		errs = append(errs, s.Delete(KeyCurrent))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	return s.Set(KeyQueue, cp.Items)
}

func saveSettings(s gokv.Store, settings config.Settings) error {
	return s.Set(KeySettings, settings)
}

// LoadSettings returns the settings the persisted queue was started with.
func LoadSettings(s gokv.Store) (settings config.Settings, found bool, err error) {
	found, err = s.Get(KeySettings, &settings)
	return settings, found, err
}

// clearCheckpoint removes KeyQueue first, so an interrupted clear leaves no
// queue behind.
func clearCheckpoint(s gokv.Store) error {
	var errs []error
	for _, key := range checkpointKeys {
		errs = append(errs, s.Delete(key))
	}
	return errors.Join(errs...)
}
