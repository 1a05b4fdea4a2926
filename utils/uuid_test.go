package utils

import (
	"errors"
	"testing"
)

func TestUUIDRoundTrip(t *testing.T) {
	str := "1f9d104e-ca0e-4202-ba4b-a0afb969c747"
	u, err := StrToUUID(str)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if u[0] != 0x1f || u[15] != 0x47 {
		t.Log("wrong bytes", u)
		t.FailNow()
	}
	if s := UUIDToStr(u[:]); s != str {
		t.Log("got", s)
		t.FailNow()
	}

	g := GenerateUUIDStr()
	if _, err := StrToUUID(g); err != nil {
		t.Log(g, err)
		t.FailNow()
	}
}

func TestStrToUUIDInvalid(t *testing.T) {
	for _, s := range []string{"", "1f9d104e", "1f9d104e-ca0e-4202-ba4b-a0afb969c74z", "1f9d104eca0e4202ba4ba0afb969c7471234"} {
		_, err := StrToUUID(s)
		if err == nil {
			t.Log("should fail", s)
			t.FailNow()
		}
	}

	_, err := StrToUUID("short")
	if !errors.Is(err, ErrInvalidData) {
		t.Log("should wrap ErrInvalidData", err)
		t.FailNow()
	}
}
