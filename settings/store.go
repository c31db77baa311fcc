package settings

// Store is one persistence medium for the encoded settings blob. Load
// returns a nil slice when nothing has been persisted yet.
type Store interface {
	Load() ([]byte, error)
	Save([]byte) error
}

// Load reads and decodes from st. The returned settings are always usable:
// an empty medium or a corrupt payload yields the defaults, with the error
// reporting what happened.
func Load(st Store) (Settings, error) {
	raw, err := st.Load()
	if err != nil {
		return Defaults(), err
	}
	if len(raw) == 0 {
		return Defaults(), nil
	}
	return Decode(raw)
}

// Save normalizes, encodes and persists s.
func Save(st Store, s Settings) error {
	var buf [96]byte
	return st.Save(s.Normalize().Encode(buf[:0]))
}
