package storagedomain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefreshLUNsNeedsLUNs(t *testing.T) {
	err := (&Builder{}).RefreshLUNs("192.168.200.2", 3260, "iqn.2014-07.org.ovirt:storage", nil)
	assert.EqualError(t, err, "refreshing luns requires at least one lun")
}

func TestImportImageValidation(t *testing.T) {
	testCases := []struct {
		spec ImageImport
	}{
		{spec: ImageImport{StorageDomainName: "nfs", DiskName: "disk"}},
		{spec: ImageImport{ImageName: "CirrOS", DiskName: "disk"}},
		{spec: ImageImport{ImageName: "CirrOS", StorageDomainName: "nfs"}},
	}

	for _, testCase := range testCases {
		err := (&Builder{}).ImportImage(testCase.spec)
		assert.EqualError(t, err, "image import 'ImageName', 'StorageDomainName' and 'DiskName' cannot be empty")
	}
}
