package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func marshalJSONColumn(val any) (datatypes.JSON, error) {
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
