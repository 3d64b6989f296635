package config

import (
	"sync"
)

var (
	// globalManager is the singleton configuration manager instance
	globalManager *Manager
	globalMu      sync.Mutex
)

// NewDefaultManager returns a manager over store with every formless
// section registered, not yet loaded.
func NewDefaultManager(store Store) (*Manager, error) {
	manager := NewManager(store)
	for _, s := range []Section{
		NewOverlaySection(),
		NewMatchingSection(),
		NewLLMSection(),
		NewServerSection(),
	} {
		if err := manager.RegisterSection(s); err != nil {
			return nil, err
		}
	}
	return manager, nil
}

// Initialize creates and initializes the global configuration manager.
// This should be called once at application startup.
func Initialize(configPath string) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	store, err := NewFileStore(configPath)
	if err != nil {
		return err
	}

	manager, err := NewDefaultManager(store)
	if err != nil {
		return err
	}

	if err := manager.LoadAll(); err != nil {
		return err
	}

	globalManager = manager
	return nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}

	return globalManager
}

// IsInitialized returns true if the global configuration has been initialized.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

func section[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	s, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := s.(T)
	if !ok {
		return zero
	}
	return typed
}

// GetOverlay returns the overlay section, or nil before Initialize.
func GetOverlay() *OverlaySection {
	return section[*OverlaySection](SectionIDOverlay)
}

// GetMatching returns the matching client section, or nil before Initialize.
func GetMatching() *MatchingSection {
	return section[*MatchingSection](SectionIDMatching)
}

// GetLLM returns the LLM settings section, or nil before Initialize.
func GetLLM() *LLMSection {
	return section[*LLMSection](SectionIDLLM)
}

// GetServer returns the server section, or nil before Initialize.
func GetServer() *ServerSection {
	return section[*ServerSection](SectionIDServer)
}
