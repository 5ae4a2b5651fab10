package encoding

import "testing"

func TestWindows1252ToUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("Bip01 Pelvis"), "Bip01 Pelvis"},
		{"umlaut", []byte{'R', 0xFC, 'c', 'k', 'e', 'n'}, "Rücken"},
		{"euro", []byte{0x80}, "€"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Windows1252ToUTF8(tt.in); got != tt.want {
				t.Errorf("Windows1252ToUTF8() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixedString(t *testing.T) {
	field := UTF8ToFixedString("Rücken", 16)
	if len(field) != 16 {
		t.Fatalf("len = %d, want 16", len(field))
	}
	if field[1] != 0xFC {
		t.Errorf("field[1] = %#x, want 0xfc", field[1])
	}
	if got := FixedStringToUTF8(field); got != "Rücken" {
		t.Errorf("FixedStringToUTF8() = %q", got)
	}

	// Bytes after the first null are ignored.
	if got := FixedStringToUTF8([]byte("abc\x00def")); got != "abc" {
		t.Errorf("FixedStringToUTF8() = %q, want abc", got)
	}

	if got := UTF8ToFixedString("toolongname", 4); string(got) != "tool" {
		t.Errorf("UTF8ToFixedString() = %q, want tool", got)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Objects\Props\Barrel.CGF`, "objects/props/barrel.cgf"},
		{"./Textures/Stone.dds", "textures/stone.dds"},
		{"/materials/body.mtl", "materials/body.mtl"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
