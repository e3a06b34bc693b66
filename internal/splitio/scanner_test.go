// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package splitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanner(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []string
	}{
		{
			name:  "EmptyInput",
			input: []byte{},
		},
		{
			name:  "NoTrailingLF",
			input: []byte("=="),
			want:  []string{"=="},
		},
		{
			name:  "MixedLineEndings",
			input: []byte("unix\nwindows\r\nmac\r"),
			want:  []string{"unix\n", "windows\r\n", "mac\r"},
		},
		{
			name:  "BinaryData",
			input: []byte{0x00, 0x0A, 0xFF, 0x0A, 0x0D},
			want:  []string{"\x00\n", "\xff\n", "\r"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(tt.input)
			var lines []string
			for scanner.Scan() {
				lines = append(lines, string(scanner.Bytes()))
			}
			assert.Equal(t, tt.want, lines)
		})
	}
}

func TestScannerLine(t *testing.T) {
	s := NewScanner([]byte("a\r\nb\nc"))
	var lines []string
	for s.Scan() {
		lines = append(lines, string(s.Line()))
	}
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "EmptyInput",
			input: "",
			want:  nil,
		},
		{
			name:  "Delimiters",
			input: "==\n\\r\\n\n--------\n",
			want:  []string{"==", `\r\n`, "--------"},
		},
		{
			name:  "CommentsAndBlankLines",
			input: "# delimiters\r\n\r\n##\n;\n",
			want:  []string{";"},
		},
		{
			name:  "EscapedHash",
			input: "# '#' must be escaped\n\\x23\n",
			want:  []string{`\x23`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines([]byte(tt.input)))
		})
	}
}
