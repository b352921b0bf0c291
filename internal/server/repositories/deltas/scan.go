package deltas

import (
	"database/sql"
	"encoding/json"

	"github.com/dmitrijs2005/nibblelog/internal/server/models"
)

func scanDeltas(rows *sql.Rows, capacity int) ([]*models.Delta, error) {
	result := make([]*models.Delta, 0, min(capacity, 256))
	for rows.Next() {
		var (
			item    models.Delta
			payload []byte
		)
		if err := rows.Scan(
			&item.ServerSeq, &item.ID, &item.UserID, &item.DeviceID,
			&item.Entity, &item.EntityID, &item.Op, &payload, &item.TS,
		); err != nil {
			return nil, err
		}
		item.Payload = json.RawMessage(payload)
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
