package gdal

import "testing"

func useLocalGDAL(t *testing.T) {
	t.Helper()
	t.Setenv("LOFARGEOTIFF_GDAL_MODE", "local")
}
