package gateway

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const (
	sseInitialBuffer = 64 * 1024
	sseMaxLine       = 1024 * 1024
)

// errStopStream ends readEvents early without reporting an error.
var errStopStream = errors.New("stop stream")

// readEvents parses a Server-Sent Events body and calls onData with the data
// payload of every event. Multi-line data fields are joined with "\n";
// comments and other fields are ignored. Returning errStopStream from onData
// ends the stream cleanly.
func readEvents(r io.Reader, onData func(data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, sseInitialBuffer), sseMaxLine)

	var data bytes.Buffer
	pending := false

	dispatch := func() error {
		if !pending {
			return nil
		}
		payload := bytes.Clone(data.Bytes())
		data.Reset()
		pending = false
		if len(bytes.TrimSpace(payload)) == 0 {
			return nil
		}
		return onData(payload)
	}

	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")

		if len(line) == 0 {
			if err := dispatch(); err != nil {
				return stopIsNil(err)
			}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if !bytes.Equal(field, []byte("data")) {
			continue
		}
		value = bytes.TrimPrefix(value, []byte(" "))

		if pending {
			data.WriteByte('\n')
		}
		data.Write(value)
		pending = true
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return stopIsNil(dispatch())
}

func stopIsNil(err error) error {
	if errors.Is(err, errStopStream) {
		return nil
	}
	return err
}
