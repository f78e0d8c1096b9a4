package security

import "testing"

func TestGenerateCode_FixedWidthDigits(t *testing.T) {
	for range 50 {
		code, err := GenerateCode(6)
		if err != nil {
			t.Fatalf("GenerateCode error: %v", err)
		}

		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}

		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
	}
}

func TestVerifyCode(t *testing.T) {
	code, err := GenerateCode(6)
	if err != nil {
		t.Fatalf("GenerateCode error: %v", err)
	}

	hash := HashCode(code)

	if hash == code {
		t.Fatal("hash equals the plaintext code")
	}

	if !VerifyCode(code, hash) {
		t.Fatal("correct code did not verify against its hash")
	}

	if VerifyCode("999999", hash) && code != "999999" {
		t.Fatal("wrong code verified")
	}
}
