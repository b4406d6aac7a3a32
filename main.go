// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/canuckistani/jetpack-repacker/cmd/repacker"

func main() {
	cmd.Execute()
}
