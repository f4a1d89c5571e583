package common

// AccessTokenHeaderName is the HTTP header used to carry the access token on
// authenticated requests.
const AccessTokenHeaderName = "Authorization"

// MinPasscodeLength is the shortest accepted project or share passcode.
const MinPasscodeLength = 6

// MinMasterKeyLength is the shortest accepted personal master key.
const MinMasterKeyLength = 8
