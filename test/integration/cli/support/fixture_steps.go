package support

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/datpeek/internal/palette"
	"github.com/MeKo-Tech/datpeek/internal/testutil"
)

// RegisterFixtureSteps registers the steps that lay out extracted entries.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a sprite entry "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aSpriteEntry)
	sc.Step(`^a grayscale palette file "([^"]*)"$`, testCtx.aGrayscalePalette)
	sc.Step(`^a WAV entry "([^"]*)"$`, testCtx.aWAVEntry)
	sc.Step(`^a MIDI entry "([^"]*)"$`, testCtx.aMIDIEntry)
	sc.Step(`^a text entry "([^"]*)" containing "([^"]*)"$`, testCtx.aTextEntry)
	sc.Step(`^a script entry "([^"]*)" containing "([^"]*)"$`, testCtx.aScriptEntry)
	sc.Step(`^a script entry "([^"]*)" declaring (\d+) bytes but holding "([^"]*)"$`, testCtx.aShortScriptEntry)
	sc.Step(`^a binary entry "([^"]*)" with bytes "([0-9a-fA-F ]*)"$`, testCtx.aBinaryEntry)
	sc.Step(`^a PDF entry "([^"]*)" with pages "([^"]*)"$`, testCtx.aPDFEntry)
}

func (testCtx *TestContext) aSpriteEntry(name string, width, height int) error {
	indices := make([]byte, width*height)
	for i := range indices {
		indices[i] = byte(i)
	}
	return testCtx.writeFile(name, testutil.Sprite(uint16(width), uint16(height), indices))
}

func (testCtx *TestContext) aGrayscalePalette(name string) error {
	raw := make([]byte, 0, palette.Size*3)
	for i := range palette.Size {
		raw = append(raw, byte(i), byte(i), byte(i))
	}
	return testCtx.writeFile(name, raw)
}

func (testCtx *TestContext) aWAVEntry(name string) error {
	return testCtx.writeFile(name, testutil.WAV(22050, 2, 16, 128))
}

func (testCtx *TestContext) aMIDIEntry(name string) error {
	return testCtx.writeFile(name, testutil.MIDI(1))
}

func (testCtx *TestContext) aTextEntry(name, content string) error {
	return testCtx.writeFile(name, []byte(content))
}

func (testCtx *TestContext) aScriptEntry(name, content string) error {
	return testCtx.writeFile(name, testutil.LengthText([]byte(content), -1))
}

func (testCtx *TestContext) aShortScriptEntry(name string, declared int, content string) error {
	return testCtx.writeFile(name, testutil.LengthText([]byte(content), int64(declared)))
}

func (testCtx *TestContext) aBinaryEntry(name, hexBytes string) error {
	data, err := hex.DecodeString(strings.ReplaceAll(hexBytes, " ", ""))
	if err != nil {
		return fmt.Errorf("bad hex fixture: %w", err)
	}
	return testCtx.writeFile(name, data)
}

func (testCtx *TestContext) aPDFEntry(name, pages string) error {
	return testCtx.writeFile(name, testutil.PDF(strings.Split(pages, "|")...))
}
