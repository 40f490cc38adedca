package structured

import "fmt"

// Rich documents arrive as a flat block list: paragraphs carry their
// concatenated run text, tables carry a 2-D cell grid. Each block is
// redacted wholesale; reattaching run formatting to the rewritten text is
// the document re-assembler's concern, not this engine's.

// Block kinds.
const (
	BlockParagraph = "paragraph"
	BlockTable     = "table"
)

// Block is one unit of a document: either a paragraph or a table.
type Block struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Cells [][]string `json:"cells,omitempty"`
}

// Document is an ordered list of blocks, one per paragraph or table of
// the source document.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// RedactDocument redacts every paragraph and table cell of a document,
// preserving block order and table dimensions.
func (w *Walker) RedactDocument(doc Document) (Document, *Summary, error) {
	out := Document{Blocks: make([]Block, len(doc.Blocks))}
	summary := &Summary{}

	for i, block := range doc.Blocks {
		switch block.Type {
		case BlockParagraph:
			leaf, sub, err := w.redactLeaf(block.Text, fmt.Sprintf("$.blocks[%d]", i))
			if err != nil {
				return Document{}, nil, err
			}
			text, _ := leaf.Text()
			out.Blocks[i] = Block{Type: BlockParagraph, Text: text}
			summary.merge(sub)

		case BlockTable:
			cells := make([][]string, len(block.Cells))
			for r, row := range block.Cells {
				cells[r] = make([]string, len(row))
				for c, cell := range row {
					leaf, sub, err := w.redactLeaf(cell, fmt.Sprintf("$.blocks[%d][%d][%d]", i, r, c))
					if err != nil {
						return Document{}, nil, err
					}
					cells[r][c], _ = leaf.Text()
					summary.merge(sub)
				}
			}
			out.Blocks[i] = Block{Type: BlockTable, Cells: cells}

		default:
			return Document{}, nil, fmt.Errorf("%w: block %d has type %q", ErrStructuralMismatch, i, block.Type)
		}
	}
	return out, summary, nil
}
