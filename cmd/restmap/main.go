// Command restmap fetches resources declared in a YAML config and prints
// them as JSON lines.
package main

func main() {
	Execute()
}
