// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// YesNoFunc asks a yes/no question.
type YesNoFunc func(question string) bool

// PromptYesNo asks question on out and reads the answer from in. Anything
// other than y or yes, including end of input, is a no.
func PromptYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(out)
		return false
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes"
}
