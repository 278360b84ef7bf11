package returns

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var notePrinter = message.NewPrinter(language.French)

// OrderNoteText renders the annotation attached to the storefront order
// when a return is processed. The storefront audience is French.
func OrderNoteText(n ReturnNote) string {
	text := notePrinter.Sprintf("Retour %s traité : %d article(s), remboursement %.2f", n.Number, n.ItemCount(), n.RefundTotal)
	if n.Reason != "" {
		text = notePrinter.Sprintf("%s. Motif : %s", text, n.Reason)
	}
	return text
}
