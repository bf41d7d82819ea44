package main

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/elijahnyp/relay_controller/util"
	"github.com/spf13/viper"
)

func TestWriteConfig(t *testing.T) {
	Config = viper.New()
	SetDefaults()
	Config.Set("password", "hunter2")
	Config.Set("device_id", "porch")

	var out bytes.Buffer
	if err := writeConfig(&out); err != nil {
		t.Fatalf("writeConfig returned error: %v", err)
	}
	text := out.String()

	for _, want := range []string{
		`device_id: "porch"`,
		`namespace: "hab"`,
		`heartbeat_seconds: "10"`,
		`password: "********"`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("config output missing %s:\n%s", want, text)
		}
	}
	if strings.Contains(text, "hunter2") {
		t.Error("config output leaked the password")
	}
	if strings.Index(text, "brightness_high") > strings.Index(text, "namespace") {
		t.Error("config keys should be sorted")
	}
}
