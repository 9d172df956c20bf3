package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("transactions")

		collection.Fields.Add(
			&core.TextField{
				Name:     "txn_id",
				Required: true,
			},
			&core.TextField{
				Name:     "user_id",
				Required: true,
			},
			&core.NumberField{
				Name: "amount",
			},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values:    []string{"pending", "settled", "failed"},
			},
			&core.TextField{
				Name: "provider",
			},
			&core.DateField{
				Name: "settled_at",
			},
			&core.AutodateField{
				Name:     "created",
				OnCreate: true,
			},
			&core.AutodateField{
				Name:     "updated",
				OnCreate: true,
				OnUpdate: true,
			},
		)

		collection.AddIndex("idx_transactions_txn_id", true, "txn_id", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("transactions")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
