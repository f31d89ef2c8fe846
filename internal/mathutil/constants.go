package mathutil

// PreviewView is the fixed three-quarter camera used for thumbnails:
// Rx(-25°) @ Ry(35°), looking down -Z with +Y up.
var PreviewView = Mat3Mul(RotX(Deg2Rad(-25)), RotY(Deg2Rad(35)))
