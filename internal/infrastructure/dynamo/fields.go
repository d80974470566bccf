package dynamo

// DynamoDB attribute names used in keys and update expressions across all repos.
const (
	attrUserID         = "user_id"
	attrVerificationID = "verification_id"
	attrProvider       = "provider"
	attrEmail          = "email"
	attrName           = "name"
	attrActive         = "active"
	attrCreatedAt      = "created_at"
	attrUpdatedAt      = "updated_at"

	indexEmail         = "email-index"
	indexUserCreatedAt = "user_id-created_at-index"
)
