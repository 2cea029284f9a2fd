package flow

import "github.com/rallypointza/rallypoint/internal/models"

// NextProfileRequest decides which piece of profile data to ask for next.
// Pure function of the user's stored completeness flags: name strictly before
// province, RequestNone once both are set.
func NextProfileRequest(u *models.ChatUser) models.RequestDataType {
	switch {
	case !u.HasSetName():
		return models.RequestUserName
	case !u.HasSetProvince():
		return models.RequestProvinceOkay
	default:
		return models.RequestNone
	}
}

// NextAfterSkip advances past a skipped request in the fixed name → province
// → none order. A skip never re-asks the same question; it only steps past
// the immediately pending request.
func NextAfterSkip(skipped models.RequestDataType) models.RequestDataType {
	if skipped == models.RequestUserName {
		return models.RequestProvinceOkay
	}
	return models.RequestNone
}
