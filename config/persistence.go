package config

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/quasilyte/gdata"
)

const overridesKey = "netconfig"

var gdataManager *gdata.Manager

// InitPersistence opens the per-user data store that holds config overrides.
func InitPersistence(appName string) error {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Printf("[config] could not initialize persistence: %v", err)
		return err
	}
	gdataManager = m
	return nil
}

// LoadOverrides applies saved overrides on top of Net. A missing store or
// item leaves Net untouched; a store or decode failure leaves Net untouched
// and is returned.
func LoadOverrides() error {
	if gdataManager == nil {
		return nil
	}
	return loadOverrides(gdataManager.LoadItem)
}

func loadOverrides(load func(key string) ([]byte, error)) error {
	data, err := load(overridesKey)
	if err != nil {
		log.Printf("[config] could not load overrides: %v", err)
		return fmt.Errorf("load overrides: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	merged, err := applyOverrides(Net, data)
	if err != nil {
		log.Printf("[config] ignoring saved overrides: %v", err)
		return fmt.Errorf("apply overrides: %w", err)
	}
	Net = merged
	return nil
}

// SaveOverrides persists the current Net configuration.
func SaveOverrides() error {
	if gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(Net)
	if err != nil {
		return err
	}
	if err := gdataManager.SaveItem(overridesKey, data); err != nil {
		log.Printf("[config] could not save overrides: %v", err)
		return err
	}
	return nil
}

// applyOverrides decodes data over base. Fields absent from data keep their
// base values; the result must still validate.
func applyOverrides(base NetConfig, data []byte) (NetConfig, error) {
	merged := base
	if err := json.Unmarshal(data, &merged); err != nil {
		return base, err
	}
	if err := merged.Validate(); err != nil {
		return base, err
	}
	return merged, nil
}
