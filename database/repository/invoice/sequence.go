package invoiceRepo

import (
	"context"
	"fmt"
	"time"

	"consultbook/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// invoiceSequence is a per-month counter document.
type invoiceSequence struct {
	ID        string `bson:"_id"`
	LastValue int64  `bson:"lastValue"`
}

// FormatInvoiceNumber renders sequence n of the month containing at.
func FormatInvoiceNumber(at time.Time, n int64) string {
	return fmt.Sprintf("INV-%s-%05d", at.UTC().Format("200601"), n)
}

// NextInvoiceNumber increments the month's counter. Inside a transaction the
// increment commits or rolls back with the invoice insert, so numbers are not
// consumed by failed attempts.
func (repo *MongoInvoiceRepo) NextInvoiceNumber(ctx context.Context, at time.Time) (string, error) {
	ctx, cancel := newContext(ctx)
	defer cancel()

	key := "invoice:" + at.UTC().Format("200601")
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var seq invoiceSequence
	err := repo.counterColl.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"lastValue": 1}}, opts).Decode(&seq)
	if err != nil {
		return "", database.ClassifyError("error allocating invoice number", err)
	}
	return FormatInvoiceNumber(at, seq.LastValue), nil
}

// CreditNoteNumber is the credit note reference issued when inv is reissued.
func CreditNoteNumber(invoiceNumber string) string {
	return "CN-" + invoiceNumber
}
