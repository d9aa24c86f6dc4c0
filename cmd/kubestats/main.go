// Kubestats - GitOps repository scanner
// Parse. Diff. Record.
package main

func main() {
	Execute()
}
