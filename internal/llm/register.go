package llm

import (
	"slices"
	"sync"
)

// Register holds the model selected for generation and the models known to be
// installed on the server. It is safe for concurrent use.
type Register struct {
	mutex           sync.RWMutex
	selectedModel   string
	availableModels []string
	listInitialized bool
}

// NewRegister returns an empty register with no selection and no model list.
func NewRegister() *Register {
	return &Register{}
}

// SelectedModel returns the selected model and whether one is selected.
func (register *Register) SelectedModel() (string, bool) {
	register.mutex.RLock()
	defer register.mutex.RUnlock()
	return register.selectedModel, register.selectedModel != ""
}

func (register *Register) setSelectedModel(modelName string) {
	register.mutex.Lock()
	defer register.mutex.Unlock()
	register.selectedModel = modelName
}

func (register *Register) clearSelectedModel() {
	register.setSelectedModel("")
}

// AvailableModels returns a copy of the installed model names and whether the
// list was ever populated.
func (register *Register) AvailableModels() ([]string, bool) {
	register.mutex.RLock()
	defer register.mutex.RUnlock()
	if !register.listInitialized {
		return nil, false
	}
	return slices.Clone(register.availableModels), true
}

func (register *Register) setAvailableModels(modelNames []string) {
	register.mutex.Lock()
	defer register.mutex.Unlock()
	register.availableModels = slices.Clone(modelNames)
	if register.availableModels == nil {
		register.availableModels = []string{}
	}
	register.listInitialized = true
}
