// Command mermaidflow is a Mermaid diagram editor with live preview,
// undo/redo history and AI-assisted syntax repair.
package main

func main() {
	Execute()
}
