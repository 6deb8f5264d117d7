package address

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

const (
	alicePubHex     = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceGeneric    = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	alicePolkadot   = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
	aliceTamperedCk = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQZ"
)

func alicePub(t *testing.T) []byte {
	t.Helper()
	b, err := hex.DecodeString(alicePubHex)
	if err != nil {
		t.Fatalf("decode alice key: %v", err)
	}
	return b
}

func TestEncodeSS58_KnownVectors(t *testing.T) {
	pub := alicePub(t)

	tests := []struct {
		prefix uint16
		want   string
	}{
		{42, aliceGeneric},
		{0, alicePolkadot},
	}
	for _, tt := range tests {
		got, err := EncodeSS58(pub, tt.prefix)
		if err != nil {
			t.Fatalf("EncodeSS58(%d): %v", tt.prefix, err)
		}
		if got != tt.want {
			t.Errorf("EncodeSS58(%d) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestDecode_SS58(t *testing.T) {
	d, err := Match(aliceGeneric)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if d.Family != FamilySS58 {
		t.Errorf("Family = %v, want %v", d.Family, FamilySS58)
	}
	if d.Prefix != 42 {
		t.Errorf("Prefix = %d, want 42", d.Prefix)
	}
	if !bytes.Equal(d.Bytes, alicePub(t)) {
		t.Errorf("Bytes = %x, want %s", d.Bytes, alicePubHex)
	}
}

func TestSS58_TwoBytePrefixRoundtrip(t *testing.T) {
	pub := alicePub(t)
	for _, prefix := range []uint16{63, 64, 255, 1284, 5000, MaxSS58Prefix} {
		s, err := EncodeSS58(pub, prefix)
		if err != nil {
			t.Fatalf("EncodeSS58(%d): %v", prefix, err)
		}
		d, err := Match(s)
		if err != nil {
			t.Fatalf("Match(%q): %v", s, err)
		}
		if d.Prefix != prefix {
			t.Errorf("prefix %d decoded as %d", prefix, d.Prefix)
		}
		if !bytes.Equal(d.Bytes, pub) {
			t.Errorf("prefix %d: bytes = %x", prefix, d.Bytes)
		}
	}
}

func TestSS58_ShortPayloads(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 33} {
		raw := bytes.Repeat([]byte{0xab}, n)
		s, err := EncodeSS58(raw, 7)
		if err != nil {
			t.Fatalf("EncodeSS58(%d bytes): %v", n, err)
		}
		got, err := Decode(s)
		if err != nil {
			t.Fatalf("Decode(%q): %v", s, err)
		}
		if !bytes.Equal(got, raw) {
			t.Errorf("%d bytes: got %x, want %x", n, got, raw)
		}
	}
}

func TestEncodeSS58_Rejects(t *testing.T) {
	pub := alicePub(t)

	if _, err := EncodeSS58(pub, 46); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("prefix 46: err = %v, want ErrInvalidPrefix", err)
	}
	if _, err := EncodeSS58(pub, 47); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("prefix 47: err = %v, want ErrInvalidPrefix", err)
	}
	if _, err := EncodeSS58(pub, MaxSS58Prefix+1); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("prefix 16384: err = %v, want ErrInvalidPrefix", err)
	}
	if _, err := EncodeSS58(make([]byte, 5), 42); !errors.Is(err, ErrInvalidLength) {
		t.Errorf("5-byte payload: err = %v, want ErrInvalidLength", err)
	}
}

func TestDecode_SS58ChecksumMismatch(t *testing.T) {
	_, err := Decode(aliceTamperedCk)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestDecode_SS58BadLength(t *testing.T) {
	s := base58.Encode([]byte{42, 1, 2, 3, 4})
	if _, err := Decode(s); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("err = %v, want ErrInvalidLength", err)
	}
}

func TestDecode_SS58ReservedPrefix(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"prefix 46", []byte{46, 1, 2}},
		{"prefix 47", []byte{47, 1, 2}},
		{"header bit", []byte{0x80, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(base58.Encode(tt.raw)); !errors.Is(err, ErrChecksumMismatch) {
				t.Fatalf("err = %v, want ErrChecksumMismatch", err)
			}
		})
	}
}

// requireCorruptionsRejected replaces every character of s with every other
// base58 character and requires each result to fail its checksum.
func requireCorruptionsRejected(t *testing.T, s string) {
	t.Helper()
	const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	if _, err := Decode(s); err != nil {
		t.Fatalf("Decode(%s): %v", s, err)
	}
	for i := 0; i < len(s); i++ {
		for _, c := range alphabet {
			if byte(c) == s[i] {
				continue
			}
			corrupt := s[:i] + string(c) + s[i+1:]
			if _, err := Decode(corrupt); !errors.Is(err, ErrChecksumMismatch) {
				t.Errorf("Decode(%s): err = %v, want ErrChecksumMismatch", corrupt, err)
			}
		}
	}
}

func TestDecode_SS58SingleCharacterCorruption(t *testing.T) {
	requireCorruptionsRejected(t, aliceGeneric)
}

func TestDecode_NotBase58(t *testing.T) {
	for _, s := range []string{"", "   ", "not-an-address!", "0OIl"} {
		if _, err := Decode(s); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Decode(%q): err = %v, want ErrInvalidAddress", s, err)
		}
	}
}
