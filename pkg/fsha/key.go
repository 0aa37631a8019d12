package fsha

import "fmt"

// RowWidth is the number of key words per program.
func (m *ShaderModel) RowWidth() int {
	return int(m.StaticKeyLength) + int(m.DynamicKeyLength)
}

// ProgramKey returns the key row of program p.
func (m *ShaderModel) ProgramKey(p int) ([]int32, error) {
	if p < 0 || p >= len(m.Programs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrProgramIndex, p, len(m.Programs))
	}
	w := m.RowWidth()
	if (p+1)*w > len(m.KeyTable) {
		return nil, fmt.Errorf("%w: row %d needs %d words, have %d", ErrKeyTable, p, (p+1)*w, len(m.KeyTable))
	}
	return m.KeyTable[p*w : (p+1)*w], nil
}

// keyWord locates the word of option o in program p's row. Dynamic
// options index past the static words, rebased by their key offset.
func (m *ShaderModel) keyWord(p int, o *ShaderOption, dynamic bool) (int, error) {
	idx := int(o.WordIndex)
	limit := int(m.StaticKeyLength)
	if dynamic {
		idx = int(m.StaticKeyLength) + int(o.WordIndex) - int(o.KeyOffset)
		limit = m.RowWidth()
	}
	if idx < 0 || idx >= limit {
		return 0, fmt.Errorf("%w: option %s word %d outside row", ErrKeyTable, o.Name, idx)
	}
	at := p*m.RowWidth() + idx
	if at >= len(m.KeyTable) {
		return 0, fmt.Errorf("%w: program %d word %d", ErrKeyTable, p, at)
	}
	return at, nil
}

// choiceIndex extracts the choice of o for program p.
func (m *ShaderModel) choiceIndex(p int, o *ShaderOption, dynamic bool) (int, error) {
	at, err := m.keyWord(p, o, dynamic)
	if err != nil {
		return 0, err
	}
	idx := o.Extract(m.KeyTable[at])
	if idx >= o.Choices.Len() {
		return 0, fmt.Errorf("%w: program %d option %s choice %d of %d", ErrKeyOutOfRange, p, o.Name, idx, o.Choices.Len())
	}
	return idx, nil
}

// option finds a static or dynamic option by name, static first.
func (m *ShaderModel) option(name string) (*ShaderOption, bool, bool) {
	if o, ok := m.StaticOptions.Get(name); ok {
		return o, false, true
	}
	if o, ok := m.DynamicOptions.Get(name); ok {
		return o, true, true
	}
	return nil, false, false
}

// ChoiceIndex returns the choice index program p selects for the named
// static or dynamic option.
func (m *ShaderModel) ChoiceIndex(p int, option string) (int, error) {
	if _, err := m.Program(p); err != nil {
		return 0, err
	}
	o, dynamic, ok := m.option(option)
	if !ok {
		return 0, fmt.Errorf("shader model %s has no option %q", m.Name, option)
	}
	return m.choiceIndex(p, o, dynamic)
}

// IsValidProgram reports whether program p satisfies every constraint in
// choices (option name to choice name). Options are checked in model
// order, static before dynamic, so a name defined in both sets must match
// both words. Options absent from choices are unconstrained, as are names
// that are not options of the model.
func (m *ShaderModel) IsValidProgram(p int, choices map[string]string) (bool, error) {
	if _, err := m.Program(p); err != nil {
		return false, err
	}
	for _, dynamic := range []bool{false, true} {
		opts := m.StaticOptions
		if dynamic {
			opts = m.DynamicOptions
		}
		for name, o := range opts.All() {
			want, ok := choices[name]
			if !ok {
				continue
			}
			idx, err := m.choiceIndex(p, o, dynamic)
			if err != nil {
				return false, err
			}
			if got, _ := o.Choices.Key(idx); got != want {
				return false, nil
			}
		}
	}
	return true, nil
}

// ProgramIndex returns the lowest-numbered program satisfying choices.
// found is false when no program matches.
func (m *ShaderModel) ProgramIndex(choices map[string]string) (index int, found bool, err error) {
	for p := range m.Programs {
		ok, err := m.IsValidProgram(p, choices)
		if err != nil {
			return -1, false, err
		}
		if ok {
			return p, true, nil
		}
	}
	return -1, false, nil
}

// OptionChoice is the choice a program makes for one option.
type OptionChoice struct {
	Option  string `json:"option"`
	Choice  string `json:"choice"`
	Index   int    `json:"index"`
	Dynamic bool   `json:"dynamic"`
}

// ProgramChoices decodes the full key of program p, static options first.
func (m *ShaderModel) ProgramChoices(p int) ([]OptionChoice, error) {
	if _, err := m.Program(p); err != nil {
		return nil, err
	}
	out := make([]OptionChoice, 0, m.StaticOptions.Len()+m.DynamicOptions.Len())
	for _, dynamic := range []bool{false, true} {
		opts := m.StaticOptions
		if dynamic {
			opts = m.DynamicOptions
		}
		for name, o := range opts.All() {
			idx, err := m.choiceIndex(p, o, dynamic)
			if err != nil {
				return nil, err
			}
			choice, _ := o.Choices.Key(idx)
			out = append(out, OptionChoice{Option: name, Choice: choice, Index: idx, Dynamic: dynamic})
		}
	}
	return out, nil
}

// SetProgramChoice packs the named choice of option into program p's key
// row.
func (m *ShaderModel) SetProgramChoice(p int, option, choice string) error {
	if _, err := m.Program(p); err != nil {
		return err
	}
	o, dynamic, ok := m.option(option)
	if !ok {
		return fmt.Errorf("shader model %s has no option %q", m.Name, option)
	}
	idx := o.Choices.IndexOf(choice)
	if idx < 0 {
		return fmt.Errorf("option %s has no choice %q", option, choice)
	}
	at, err := m.keyWord(p, o, dynamic)
	if err != nil {
		return err
	}
	word, err := o.Pack(m.KeyTable[at], idx)
	if err != nil {
		return err
	}
	m.KeyTable[at] = word
	return nil
}
