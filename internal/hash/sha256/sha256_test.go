package sha256

import "testing"

func TestHasherMatchesKnownDigest(t *testing.T) {
	t.Parallel()

	got, err := New().Hash([]byte("chromara"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if got != HashString("chromara") {
		t.Fatalf("Hash and HashString disagree: %s", got)
	}
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if HashString("") != empty {
		t.Fatalf("unexpected empty digest %s", HashString(""))
	}
}
