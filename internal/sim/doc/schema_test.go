package doc

import "testing"

func TestValidateTop(t *testing.T) {
	ok := mustParse(t, "version: 1\nnetworks: []\n")
	if err := ValidateTop(ok); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	withBadEntries := mustParse(t, "version: 1\nnetworks: [3, {name: x}]\nrelays: []\n")
	if err := ValidateTop(withBadEntries); err != nil {
		t.Fatalf("entry shape must be left to the loaders: %v", err)
	}

	for name, src := range map[string]string{
		"no version":       "networks: []\n",
		"no networks":      "version: 1\n",
		"networks not seq": "version: 1\nnetworks: {a: 1}\n",
		"relays not seq":   "version: 1\nnetworks: []\nrelays: x\n",
		"scalar root":      "hello\n",
	} {
		if err := ValidateTop(mustParse(t, src)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
